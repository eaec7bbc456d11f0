package api

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhatro/rentledger/assist"
)

type speechRequest struct {
	Transcript string `json:"transcript" binding:"required,max=1000"`
}

func (s *Server) assistSpeech(c *gin.Context) {
	var req speechRequest
	if !bindJSON(c, &req) {
		return
	}
	got, err := s.assistant.ReadingsFromSpeech(c.Request.Context(), req.Transcript)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": got})
}

func (s *Server) assistPhoto(c *gin.Context) {
	photo, ok := s.photo(c)
	if !ok {
		return
	}
	defer photo.Close()

	got, err := s.assistant.ReadingsFromPhoto(c.Request.Context(), photo)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": got})
}

func (s *Server) assistIDCard(c *gin.Context) {
	photo, ok := s.photo(c)
	if !ok {
		return
	}
	defer photo.Close()

	got, err := s.assistant.IDCard(c.Request.Context(), photo)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": got})
}

// photo opens the "photo" file of a multipart upload.
func (s *Server) photo(c *gin.Context) (multipart.File, bool) {
	if !s.assistant.Enabled() {
		abortWithError(c, assist.ErrUnavailable)
		return nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, assist.MaxPhotoBytes+1<<20)
	fh, err := c.FormFile("photo")
	if err != nil {
		abortWithError(c, badRequest{err})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		abortWithError(c, badRequest{err})
		return nil, false
	}
	return f, true
}
