package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/user"
)

// roomResponse adds the derived occupancy status to a room.
type roomResponse struct {
	*room.Room
	Status room.Status `json:"status"`
}

func newRoomResponse(r *room.Room) roomResponse {
	return roomResponse{Room: r, Status: r.Status()}
}

func newRoomResponses(rooms []*room.Room) []roomResponse {
	out := make([]roomResponse, len(rooms))
	for i, r := range rooms {
		out[i] = newRoomResponse(r)
	}
	return out
}

type listRoomsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=occupied vacant"`
	Search string `form:"search"`
}

type suggestion struct {
	Name     string      `json:"name"`
	BaseRent types.Money `json:"base_rent"`
}

func (s *Server) listRooms(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)

	if p.Role == user.RoleTenant {
		r, err := s.engine.GetRoom(ctx, p.RoomID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": []roomResponse{newRoomResponse(r)}})
		return
	}

	var q listRoomsQuery
	if !bindQuery(c, &q) {
		return
	}
	rooms, err := s.engine.ListRooms(ctx, room.ListOpts{Status: room.Status(q.Status), Search: q.Search})
	if err != nil {
		abortWithError(c, err)
		return
	}
	name, rent, err := s.engine.SuggestRoom(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       newRoomResponses(rooms),
		"suggestion": suggestion{Name: name, BaseRent: rent},
	})
}

func (s *Server) getRoom(c *gin.Context) {
	r, err := s.engine.GetRoom(c.Request.Context(), roomID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRoomResponse(r)})
}

func (s *Server) createRoom(c *gin.Context) {
	var req rentledger.RoomInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := s.engine.CreateRoom(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": newRoomResponse(r)})
}

func (s *Server) updateRoom(c *gin.Context) {
	var req rentledger.RoomUpdate
	if !bindJSON(c, &req) {
		return
	}
	r, err := s.engine.UpdateRoom(c.Request.Context(), roomID(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRoomResponse(r)})
}

func (s *Server) deleteRoom(c *gin.Context) {
	if err := s.engine.DeleteRoom(c.Request.Context(), roomID(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) pinRoom(c *gin.Context) {
	r, err := s.engine.TogglePin(c.Request.Context(), roomID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRoomResponse(r)})
}

type moveRoomRequest struct {
	// Target is the room whose position the moved room takes.
	Target string `json:"target" binding:"required"`
}

func (s *Server) moveRoom(c *gin.Context) {
	var req moveRoomRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := id.ParseRoomID(req.Target)
	if err != nil {
		abortWithError(c, rentledger.ValidationError{Field: "target", Message: "not a room ID"})
		return
	}
	rooms, err := s.engine.MoveRoom(c.Request.Context(), roomID(c), target)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRoomResponses(rooms)})
}

// ──────────────────────────────────────────────────
// Tenants
// ──────────────────────────────────────────────────

type tenantRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name" binding:"required"`
	Phone       string `json:"phone"`
	MoveInDate  string `json:"move_in_date"`
	IDNumber    string `json:"id_number"`
	BirthDate   string `json:"birth_date"`
	Sex         string `json:"sex"`
	Nationality string `json:"nationality"`
	Origin      string `json:"origin"`
	Residence   string `json:"residence"`
	Occupation  string `json:"occupation"`
	PhotoURL    string `json:"photo_url" binding:"omitempty,url"`
}

func (r tenantRequest) tenant(field string) (tenant.Tenant, error) {
	t := tenant.Tenant{
		Name:        strings.TrimSpace(r.Name),
		Phone:       r.Phone,
		IDNumber:    strings.TrimSpace(r.IDNumber),
		Sex:         strings.TrimSpace(r.Sex),
		Nationality: strings.TrimSpace(r.Nationality),
		Origin:      strings.TrimSpace(r.Origin),
		Residence:   strings.TrimSpace(r.Residence),
		Occupation:  strings.TrimSpace(r.Occupation),
		PhotoURL:    r.PhotoURL,
	}
	if r.ID != "" {
		tid, err := id.ParseTenantID(r.ID)
		if err != nil {
			return t, rentledger.ValidationError{Field: field + ".id", Message: "not a tenant ID"}
		}
		t.ID = tid
	}
	var err error
	if t.MoveInDate, err = optionalDate(field+".move_in_date", r.MoveInDate); err != nil {
		return t, err
	}
	if r.BirthDate != "" {
		d, err := types.ParseDate(r.BirthDate)
		if err != nil {
			return t, dateError(field+".birth_date", r.BirthDate)
		}
		t.BirthDate = d.Format(time.DateOnly)
	}
	return t, nil
}

type replaceTenantsRequest struct {
	Tenants []tenantRequest `json:"tenants" binding:"dive"`
}

func (s *Server) replaceTenants(c *gin.Context) {
	var req replaceTenantsRequest
	if !bindJSON(c, &req) {
		return
	}
	tenants := make([]tenant.Tenant, len(req.Tenants))
	for i, tr := range req.Tenants {
		t, err := tr.tenant("tenants")
		if err != nil {
			abortWithError(c, err)
			return
		}
		tenants[i] = t
	}
	r, err := s.engine.ReplaceTenants(c.Request.Context(), roomID(c), tenants)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRoomResponse(r)})
}

func (s *Server) updateTenant(c *gin.Context) {
	tenantID, err := id.ParseTenantID(c.Param("tenantID"))
	if err != nil {
		abortWithError(c, rentledger.NotFoundError{Resource: "tenant", ID: c.Param("tenantID")})
		return
	}
	var req tenantRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ID = ""
	t, err := req.tenant("tenant")
	if err != nil {
		abortWithError(c, err)
		return
	}
	t.ID = tenantID

	r, err := s.engine.UpdateTenant(c.Request.Context(), roomID(c), t)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRoomResponse(r)})
}

func optionalDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	d, err := types.ParseDate(s)
	if err != nil {
		return time.Time{}, dateError(field, s)
	}
	return d, nil
}

func dateError(field, s string) error {
	return rentledger.ValidationError{Field: field, Message: "expected a YYYY-MM-DD date, got " + s}
}
