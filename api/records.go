package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// readingsRequest carries cumulative meter readings and the billing period.
type readingsRequest struct {
	Electric  *int64 `json:"electric" binding:"required"`
	Water     *int64 `json:"water" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func (r readingsRequest) parse() (usage.Readings, usage.Period, error) {
	readings := usage.Readings{Electric: *r.Electric, Water: *r.Water}
	start, err := types.ParseDate(r.StartDate)
	if err != nil {
		return readings, usage.Period{}, dateError("start_date", r.StartDate)
	}
	end, err := types.ParseDate(r.EndDate)
	if err != nil {
		return readings, usage.Period{}, dateError("end_date", r.EndDate)
	}
	return readings, usage.Period{Start: start, End: end}, nil
}

type recordResponse struct {
	Room   roomResponse  `json:"room"`
	Record *usage.Record `json:"record"`
}

func (s *Server) appendRecord(c *gin.Context) {
	var req readingsRequest
	if !bindJSON(c, &req) {
		return
	}
	readings, period, err := req.parse()
	if err != nil {
		abortWithError(c, err)
		return
	}
	r, rec, err := s.engine.AppendRecord(c.Request.Context(), roomID(c), readings, period)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": recordResponse{Room: newRoomResponse(r), Record: rec}})
}

type editRecordRequest struct {
	readingsRequest

	// Amount overrides the computed bill, in whole currency units.
	Amount *int64 `json:"amount" binding:"omitempty,gte=0"`
	Paid   *bool  `json:"paid"`
}

func (s *Server) editRecord(c *gin.Context) {
	recordID, ok := recordParam(c)
	if !ok {
		return
	}
	var req editRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	readings, period, err := req.parse()
	if err != nil {
		abortWithError(c, err)
		return
	}
	edit := rentledger.RecordEdit{Readings: readings, Period: period, Paid: req.Paid}
	if req.Amount != nil {
		m := s.money(*req.Amount)
		edit.Amount = &m
	}

	r, rec, err := s.engine.EditRecord(c.Request.Context(), roomID(c), recordID, edit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recordResponse{Room: newRoomResponse(r), Record: rec}})
}

func (s *Server) deleteRecord(c *gin.Context) {
	recordID, ok := recordParam(c)
	if !ok {
		return
	}
	r, err := s.engine.DeleteRecord(c.Request.Context(), roomID(c), recordID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRoomResponse(r)})
}

func (s *Server) markPaid(c *gin.Context) {
	recordID, ok := recordParam(c)
	if !ok {
		return
	}
	r, rec, err := s.engine.MarkPaid(c.Request.Context(), roomID(c), recordID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recordResponse{Room: newRoomResponse(r), Record: rec}})
}

type checkoutRequest struct {
	readingsRequest

	// FinalRent replaces the base rent on the final bill, e.g. for a
	// partial month.
	FinalRent *int64 `json:"final_rent" binding:"omitempty,gte=0"`
}

func (s *Server) checkout(c *gin.Context) {
	var req checkoutRequest
	if !bindJSON(c, &req) {
		return
	}
	readings, period, err := req.parse()
	if err != nil {
		abortWithError(c, err)
		return
	}
	var finalRent *types.Money
	if req.FinalRent != nil {
		m := s.money(*req.FinalRent)
		finalRent = &m
	}

	r, rec, err := s.engine.Checkout(c.Request.Context(), roomID(c), readings, period, finalRent)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recordResponse{Room: newRoomResponse(r), Record: rec}})
}

// money expresses an amount in the billing currency.
func (s *Server) money(amount int64) types.Money {
	return types.Money{Amount: amount, Currency: s.engine.Rates().Electric.Currency}
}

func recordParam(c *gin.Context) (id.RecordID, bool) {
	recordID, err := id.ParseRecordID(c.Param("recordID"))
	if err != nil {
		abortWithError(c, rentledger.NotFoundError{Resource: "record", ID: c.Param("recordID")})
		return id.Nil, false
	}
	return recordID, true
}
