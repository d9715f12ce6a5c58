package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/eventimport/internal/core"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// rowRequest is the body of add-row and edit-row calls. Omitted fields are
// left unchanged on edit and defaulted on add.
type rowRequest struct {
	Room      *string `json:"room" validate:"omitempty,max=200"`
	Title     *string `json:"title" validate:"omitempty,max=500"`
	Presenter *string `json:"presenter" validate:"omitempty,max=1000"`
	Date      *string `json:"date" validate:"omitempty,max=40"`
	StartTime *string `json:"startTime" validate:"omitempty,max=20"`
	EndTime   *string `json:"endTime" validate:"omitempty,max=20"`
	Timezone  *string `json:"timezone" validate:"omitempty,max=64"`
	Language  *string `json:"language" validate:"omitempty,max=35"`
	Glossary  *string `json:"glossary" validate:"omitempty,max=200"`
	Account   *string `json:"account" validate:"omitempty,max=200"`
	VoicePack *string `json:"voicePack" validate:"omitempty,max=200"`
}

func (req rowRequest) patch() core.RowPatch {
	return core.RowPatch{
		Room:      req.Room,
		Title:     req.Title,
		Presenter: req.Presenter,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Timezone:  req.Timezone,
		Language:  req.Language,
		Glossary:  req.Glossary,
		Account:   req.Account,
		VoicePack: req.VoicePack,
	}
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
	}
	return nil
}

func rowIDParam(r *http.Request) (core.RowID, error) {
	raw := chi.URLParam(r, "rowID")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: row id %q", errBadRequest, raw)
	}
	return core.RowID(id), nil
}

// rowFilter builds a ledger filter from room, status and q. Status may list
// several values separated by commas.
func rowFilter(q url.Values) (core.RowFilter, error) {
	var filters []core.RowFilter
	if room := strings.TrimSpace(q.Get("room")); room != "" {
		filters = append(filters, core.ByRoom(room))
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		var statuses []core.RowStatus
		for _, part := range strings.Split(raw, ",") {
			switch st := core.RowStatus(strings.TrimSpace(part)); st {
			case core.StatusValid, core.StatusWarning, core.StatusError:
				statuses = append(statuses, st)
			case "":
			default:
				return nil, fmt.Errorf("%w: unknown status %q", errBadRequest, st)
			}
		}
		if len(statuses) > 0 {
			filters = append(filters, core.ByStatus(statuses...))
		}
	}
	if search := strings.TrimSpace(q.Get("q")); search != "" {
		filters = append(filters, core.Search(search))
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return core.All(filters...), nil
}
