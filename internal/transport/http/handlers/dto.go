package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/availability"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/service"
)

// date — календарная дата в JSON формата "YYYY-MM-DD".
type date time.Time

func (d date) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(availability.DateLayout))
}

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	t, err := availability.ParseDate(s)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}

	*d = date(t)
	return nil
}

func (d date) Time() time.Time { return time.Time(d) }

func datePtr(d *date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

// --- auth ---

type registerRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	Patronymic     string `json:"patronymic"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"password_repeat"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func tokenFromModel(p *models.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    models.TokenType,
	}
}

// --- users ---

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	Patronymic  string    `json:"patronymic"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
}

func userFromModel(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Surname:     u.Surname,
		Patronymic:  u.Patronymic,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}

// selfUpdateRequest — /users/me: флаги активности и прав недоступны.
type selfUpdateRequest struct {
	Email          *string `json:"email"`
	Name           *string `json:"name"`
	Surname        *string `json:"surname"`
	Patronymic     *string `json:"patronymic"`
	Password       *string `json:"password"`
	PasswordRepeat *string `json:"password_repeat"`
}

func (in selfUpdateRequest) toPatch() service.UserPatch {
	return service.UserPatch{
		Email:          in.Email,
		Name:           in.Name,
		Surname:        in.Surname,
		Patronymic:     in.Patronymic,
		Password:       in.Password,
		PasswordRepeat: in.PasswordRepeat,
	}
}

type userUpdateRequest struct {
	selfUpdateRequest
	IsActive    *bool `json:"is_active"`
	IsSuperuser *bool `json:"is_superuser"`
}

func (in userUpdateRequest) toPatch() service.UserPatch {
	p := in.selfUpdateRequest.toPatch()
	p.IsActive = in.IsActive
	p.IsSuperuser = in.IsSuperuser
	return p
}

// --- rooms ---

type roomRequest struct {
	Name        string  `json:"name"`
	PricePerDay float64 `json:"price_per_day"`
	Places      int     `json:"places"`
}

func (in roomRequest) toInput() service.RoomInput {
	return service.RoomInput{Name: in.Name, PricePerDay: in.PricePerDay, Places: in.Places}
}

type roomPatchRequest struct {
	Name        *string  `json:"name"`
	PricePerDay *float64 `json:"price_per_day"`
	Places      *int     `json:"places"`
}

type roomResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PricePerDay float64   `json:"price_per_day"`
	Places      int       `json:"places"`
}

func roomFromModel(r models.Room) roomResponse {
	return roomResponse{ID: r.ID, Name: r.Name, PricePerDay: r.PricePerDay, Places: r.Places}
}

// --- bookings ---

// bookingRequest — создание брони. Для POST /bookings user_id
// подменяется текущим пользователем.
type bookingRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	RoomID   uuid.UUID `json:"room_id"`
	DateFrom date      `json:"date_from"`
	DateTo   date      `json:"date_to"`
}

func (in bookingRequest) toInput() service.BookingInput {
	return service.BookingInput{
		UserID:   in.UserID,
		RoomID:   in.RoomID,
		DateFrom: in.DateFrom.Time(),
		DateTo:   in.DateTo.Time(),
	}
}

type bookingPatchRequest struct {
	UserID   *uuid.UUID `json:"user_id"`
	RoomID   *uuid.UUID `json:"room_id"`
	DateFrom *date      `json:"date_from"`
	DateTo   *date      `json:"date_to"`
}

func (in bookingPatchRequest) toPatch() service.BookingPatch {
	return service.BookingPatch{
		UserID:   in.UserID,
		RoomID:   in.RoomID,
		DateFrom: datePtr(in.DateFrom),
		DateTo:   datePtr(in.DateTo),
	}
}

type bookingResponse struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	RoomID   uuid.UUID `json:"room_id"`
	DateFrom date      `json:"date_from"`
	DateTo   date      `json:"date_to"`
}

func bookingFromModel(b models.Booking) bookingResponse {
	return bookingResponse{
		ID:       b.ID,
		UserID:   b.UserID,
		RoomID:   b.RoomID,
		DateFrom: date(b.DateFrom),
		DateTo:   date(b.DateTo),
	}
}
