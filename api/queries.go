package api

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/invoice"
	"github.com/nhatro/rentledger/user"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// listQuery is invoice.Query plus the room filter as a string.
type listQuery struct {
	invoice.Query
	RoomID string `form:"room_id"`
}

func (s *Server) bindListQuery(c *gin.Context) (invoice.Query, bool) {
	var q listQuery
	if !bindQuery(c, &q) {
		return invoice.Query{}, false
	}
	if q.RoomID != "" {
		rid, err := id.ParseRoomID(q.RoomID)
		if err != nil {
			abortWithError(c, rentledger.ValidationError{Field: "room_id", Message: "not a room ID"})
			return invoice.Query{}, false
		}
		q.Query.RoomID = rid
	}
	if p := principal(c); p.Role == user.RoleTenant {
		q.Query.RoomID = p.RoomID
	}
	return q.Query, true
}

func (s *Server) listInvoices(c *gin.Context) {
	q, ok := s.bindListQuery(c)
	if !ok {
		return
	}
	page, err := s.engine.Invoices(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page})
}

func (s *Server) listArchive(c *gin.Context) {
	q, ok := s.bindListQuery(c)
	if !ok {
		return
	}
	page, err := s.engine.Archive(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page})
}

func (s *Server) notifications(c *gin.Context) {
	list, err := s.engine.Notifications(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) getInvoice(c *gin.Context) {
	recordID, ok := recordParam(c)
	if !ok {
		return
	}
	inv, err := s.engine.Invoice(c.Request.Context(), roomID(c), recordID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if c.Query("format") != "html" {
		c.JSON(http.StatusOK, gin.H{"data": inv})
		return
	}
	var buf bytes.Buffer
	if err := inv.Page().Render(c.Request.Context(), &buf); err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) exportRoom(c *gin.Context) {
	var buf bytes.Buffer
	name, err := s.engine.ExportRoom(c.Request.Context(), roomID(c), &buf)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
