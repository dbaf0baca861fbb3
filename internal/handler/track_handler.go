package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wrohdewald/gpxity/internal/models"
	"github.com/wrohdewald/gpxity/internal/track"
	"github.com/wrohdewald/gpxity/pkg/response"
)

// TrackHandler serves the tracks of one collection over HTTP.
type TrackHandler struct {
	col track.Collection
}

// NewTrackHandler creates a handler serving col.
func NewTrackHandler(col track.Collection) *TrackHandler {
	return &TrackHandler{col: col}
}

// List handles GET /api/v1/tracks.
func (h *TrackHandler) List(c *gin.Context) {
	tracks, err := h.col.List()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	headers := make([]models.TrackHeader, 0, len(tracks))
	for _, t := range tracks {
		header, err := trackHeader(t)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		headers = append(headers, header)
	}
	response.Success(c, models.TrackListResponse{Data: headers, Count: len(headers)})
}

// Get handles GET /api/v1/tracks/:id.
func (h *TrackHandler) Get(c *gin.Context) {
	t := h.attached(c.Param("id"))
	payload, err := trackPayload(t)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, payload)
}

// Create handles POST /api/v1/tracks. The collection assigns an
// identity unless the payload brings one.
func (h *TrackHandler) Create(c *gin.Context) {
	var payload models.TrackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.BadRequest(c, "invalid track payload")
		return
	}
	h.write(c, payload, payload.ID)
}

// Put handles PUT /api/v1/tracks/:id, overwriting the track.
func (h *TrackHandler) Put(c *gin.Context) {
	var payload models.TrackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.BadRequest(c, "invalid track payload")
		return
	}
	h.write(c, payload, c.Param("id"))
}

// Delete handles DELETE /api/v1/tracks/:id.
func (h *TrackHandler) Delete(c *gin.Context) {
	if err := h.col.Remove(c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// Rename handles POST /api/v1/tracks/:id/rename.
func (h *TrackHandler) Rename(c *gin.Context) {
	var request models.RenameRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, "invalid rename request")
		return
	}
	t := h.attached(c.Param("id"))
	if err := t.SetID(request.ID); err != nil {
		response.Conflict(c, err.Error())
		return
	}
	response.Success(c, models.CreatedResponse{ID: t.ID()})
}

func (h *TrackHandler) write(c *gin.Context, payload models.TrackPayload, ident string) {
	t := track.New()
	err := t.Decoupled(func() error {
		if err := t.ParseGPX([]byte(payload.Gpx)); err != nil {
			return err
		}
		if err := t.SetTitle(payload.Title); err != nil {
			return err
		}
		if err := t.SetDescription(payload.Description); err != nil {
			return err
		}
		if payload.Category != "" {
			if err := t.SetCategory(payload.Category); err != nil {
				return err
			}
		}
		if err := t.SetPublic(payload.Public); err != nil {
			return err
		}
		if len(payload.Keywords) > 0 {
			if err := t.SetKeywords(payload.Keywords...); err != nil {
				return err
			}
		}
		if len(payload.IDs) > 0 {
			return t.SetIDs(payload.IDs)
		}
		return nil
	})
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	newIdent, err := h.col.WriteFull(t, ident)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, models.CreatedResponse{ID: newIdent})
}

// attached builds a lazy track bound to the collection.
func (h *TrackHandler) attached(ident string) *track.Track {
	t := track.New()
	_ = t.Decoupled(func() error {
		t.SetCollection(h.col)
		return t.SetID(ident)
	})
	return t
}

func trackHeader(t *track.Track) (models.TrackHeader, error) {
	title, err := t.Title()
	if err != nil {
		return models.TrackHeader{}, err
	}
	description, err := t.Description()
	if err != nil {
		return models.TrackHeader{}, err
	}
	category, err := t.Category()
	if err != nil {
		return models.TrackHeader{}, err
	}
	public, err := t.Public()
	if err != nil {
		return models.TrackHeader{}, err
	}
	keywords, err := t.Keywords()
	if err != nil {
		return models.TrackHeader{}, err
	}
	return models.TrackHeader{
		ID:          t.ID(),
		Title:       title,
		Description: description,
		Category:    category,
		Public:      public,
		Keywords:    keywords,
	}, nil
}

func trackPayload(t *track.Track) (models.TrackPayload, error) {
	xml, err := t.Xml()
	if err != nil {
		return models.TrackPayload{}, err
	}
	header, err := trackHeader(t)
	if err != nil {
		return models.TrackPayload{}, err
	}
	ids, err := t.IDs()
	if err != nil {
		return models.TrackPayload{}, err
	}
	return models.TrackPayload{TrackHeader: header, IDs: ids, Gpx: string(xml)}, nil
}
