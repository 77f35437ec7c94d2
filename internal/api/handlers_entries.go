// Package api exposes the diary service over HTTP: entry CRUD, filtered
// and paginated listing, photo lookups, index resync and health.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/api/respond"
	"github.com/tsuzuri-app/tsuzuri/internal/api/validate"
	"github.com/tsuzuri-app/tsuzuri/internal/diary"
	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

// defaultPageLimit caps a paged listing when the caller sent an offset but
// no limit.
const defaultPageLimit = 100

// EntryHandler serves the /api/entries routes.
type EntryHandler struct {
	writer *diary.Writer
	reader *diary.Reader
	log    zerolog.Logger
}

// NewEntryHandler creates the handler around the two diary services.
func NewEntryHandler(w *diary.Writer, r *diary.Reader, log zerolog.Logger) *EntryHandler {
	return &EntryHandler{
		writer: w,
		reader: r,
		log:    log.With().Str("component", "entry-api").Logger(),
	}
}

// entryPayload is the wire shape shared by create and update. Dates travel
// as strings so clients can send either RFC 3339 or plain YYYY-MM-DD.
type entryPayload struct {
	Date            string     `json:"date"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	PhotoIDs        []string   `json:"photoIds,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CachedTags      []string   `json:"cachedTags,omitempty"`
	TagsGeneratedAt *time.Time `json:"tagsGeneratedAt,omitempty"`
}

func (p *entryPayload) validate() (time.Time, error) {
	date, err := validate.Date(p.Date)
	if err != nil {
		return time.Time{}, err
	}
	if err := validate.EntryPayload(p.Title, p.Content, p.PhotoIDs, p.Tags); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

// writeServiceError maps service failures onto status codes: rejected
// fields become 400, everything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	if model.IsValidationError(err) {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	respond.WriteInternalError(w, err.Error())
}

// CreateEntry POST /api/entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var p entryPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	date, err := p.validate()
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	e, err := h.writer.Create(r.Context(), model.CreateEntryRequest{
		Date:     date,
		Title:    p.Title,
		Content:  p.Content,
		PhotoIDs: p.PhotoIDs,
		Location: p.Location,
		Tags:     p.Tags,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, e)
}

// CreatePastPhotoEntry POST /api/entries/past-photo
func (h *EntryHandler) CreatePastPhotoEntry(w http.ResponseWriter, r *http.Request) {
	var p struct {
		PhotoID   string  `json:"photoId"`
		PhotoDate string  `json:"photoDate"`
		Title     string  `json:"title"`
		Content   string  `json:"content"`
		Location  *string `json:"location,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.PhotoID(p.PhotoID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	photoDate, err := validate.Date(p.PhotoDate)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.EntryPayload(p.Title, p.Content, nil, nil); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	// Same-day duplicates are allowed; the writer only logs them.
	e, err := h.writer.CreateForPastPhoto(r.Context(), model.PastPhotoEntryRequest{
		PhotoID:   p.PhotoID,
		PhotoDate: photoDate,
		Title:     p.Title,
		Content:   p.Content,
		Location:  p.Location,
	}, h.reader.EntriesByPhotoDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, e)
}

// ListEntries GET /api/entries?descending=&search=&tags=&from=&to=&offset=&limit=
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := filterFromQuery(q)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	var entries []*model.Entry
	switch {
	case q.Has("limit") || q.Has("offset"):
		offset, limit, perr := validate.PageParams(q.Get("offset"), q.Get("limit"), 0, defaultPageLimit)
		if perr != nil {
			respond.WriteBadRequest(w, perr.Error())
			return
		}
		entries, err = h.reader.FilteredEntriesPage(r.Context(), filter, offset, limit)
	case filter.IsZero():
		descending := true
		if v := q.Get("descending"); v != "" {
			descending, err = strconv.ParseBool(v)
			if err != nil {
				respond.WriteBadRequest(w, "descending must be true or false")
				return
			}
		}
		entries, err = h.reader.SortedEntries(r.Context(), descending)
	default:
		entries, err = h.reader.FilteredEntries(r.Context(), filter)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if entries == nil {
		entries = []*model.Entry{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func filterFromQuery(q map[string][]string) (model.EntryFilter, error) {
	get := func(key string) string {
		if vs := q[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var f model.EntryFilter
	f.SearchText = get("search")
	f.Tags = append(f.Tags, q["tags"]...)

	if v := get("from"); v != "" {
		from, err := validate.Date(v)
		if err != nil {
			return f, err
		}
		f.From = &from
	}
	if v := get("to"); v != "" {
		to, err := validate.Date(v)
		if err != nil {
			return f, err
		}
		f.To = &to
	}
	return f, nil
}

// GetEntry GET /api/entries/{entryId}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entryId"]
	e, err := h.reader.Entry(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if e == nil {
		respond.WriteNotFound(w, "entry not found")
		return
	}
	respond.WriteJSON(w, http.StatusOK, e)
}

// UpdateEntry PUT /api/entries/{entryId}
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entryId"]

	var p entryPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	date, err := p.validate()
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	e := &model.Entry{
		ID:              id,
		Date:            date,
		Title:           p.Title,
		Content:         p.Content,
		PhotoIDs:        p.PhotoIDs,
		Location:        p.Location,
		Tags:            p.Tags,
		CachedTags:      p.CachedTags,
		TagsGeneratedAt: p.TagsGeneratedAt,
	}
	updated, err := h.writer.Update(r.Context(), e)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, updated)
}

// DeleteEntry DELETE /api/entries/{entryId}
//
// Always answers 204: deleting an absent entry is a success, not an error.
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entryId"]
	if err := h.writer.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteNoContent(w)
}

// GetEntryByPhoto GET /api/entries/by-photo/{photoId}
func (h *EntryHandler) GetEntryByPhoto(w http.ResponseWriter, r *http.Request) {
	photoID := mux.Vars(r)["photoId"]
	e, err := h.reader.EntryByPhotoID(r.Context(), photoID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if e == nil {
		respond.WriteNotFound(w, "no entry references this photo")
		return
	}
	respond.WriteJSON(w, http.StatusOK, e)
}

// ListEntriesOnDate GET /api/entries/on/{date}
func (h *EntryHandler) ListEntriesOnDate(w http.ResponseWriter, r *http.Request) {
	date, err := validate.Date(mux.Vars(r)["date"])
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	entries, err := h.reader.EntriesByPhotoDate(r.Context(), date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.Entry{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// RebuildIndex POST /api/index/rebuild
//
// Resynchronizes the in-memory index from the store. Safe to call at any
// time; queries during the rebuild serve the previous index state.
func (h *EntryHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.writer.Rebuild(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	h.log.Info().Msg("index rebuilt on request")
	respond.WriteNoContent(w)
}
