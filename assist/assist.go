// Package assist fills forms from unstructured input with a generative
// model: meter readings from a spoken sentence or a photo of a handwritten
// note, and tenant identity fields from an ID-card photo.
//
// The assistant only proposes values. Callers apply them through the
// regular validated engine operations.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nhatro/rentledger/tenant"
)

var (
	// ErrUnavailable is returned when no model is configured.
	ErrUnavailable = errors.New("assist: assistant is not configured")

	// ErrNotRecognised is returned when the model found none of the
	// requested values.
	ErrNotRecognised = errors.New("assist: nothing recognised")

	// ErrBadResponse is returned when the model reply is not the expected
	// JSON object.
	ErrBadResponse = errors.New("assist: malformed model response")
)

// Request is one multimodal prompt. Image is optional.
type Request struct {
	Prompt   string
	Image    []byte
	MIMEType string

	// Schema constrains the JSON object the model returns.
	Schema *genai.Schema
}

// Model generates a JSON document for a prompt.
type Model interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

// Assistant turns free-form input into proposals.
type Assistant struct {
	model   Model
	logger  *slog.Logger
	maxSide int
	timeout time.Duration
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) { a.logger = logger }
}

// WithMaxImageSide bounds the longest side of photos sent to the model
// (default 1600 px).
func WithMaxImageSide(px int) Option {
	return func(a *Assistant) { a.maxSide = px }
}

// WithTimeout bounds each model call (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(a *Assistant) { a.timeout = d }
}

// New creates an Assistant. A nil model yields an assistant whose methods
// all return ErrUnavailable.
func New(model Model, opts ...Option) *Assistant {
	a := &Assistant{
		model:   model,
		logger:  slog.Default(),
		maxSide: 1600,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether a model is configured.
func (a *Assistant) Enabled() bool { return a != nil && a.model != nil }

// ──────────────────────────────────────────────────
// Meter readings
// ──────────────────────────────────────────────────

// Readings is a proposal for new meter readings. A nil field was not
// recognised.
type Readings struct {
	Electric *int64 `json:"electric"`
	Water    *int64 `json:"water"`

	// Missing lists the meters ("electric", "water") that were not
	// recognised.
	Missing []string `json:"missing,omitempty"`
}

var readingsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"electric": {Type: genai.TypeNumber, Description: "Chỉ số điện mới", Nullable: genai.Ptr(true)},
		"water":    {Type: genai.TypeNumber, Description: "Chỉ số nước mới", Nullable: genai.Ptr(true)},
	},
}

const speechPrompt = `Phân tích câu sau đây và trích xuất chỉ số điện (electric) và nước (water). Câu: %q. ` +
	`Trả về một đối tượng JSON có dạng {"electric": number | null, "water": number | null}.`

const notePrompt = `Từ hình ảnh ghi chú viết tay này, hãy trích xuất CHỈ SỐ MỚI của điện và nước.
Chỉ số MỚI là con số đứng SAU dấu mũi tên "->".
- "điện" hoặc "dd" là điện.
- "nước" hoặc "nc" là nước.
Trả về một đối tượng JSON duy nhất có dạng {"electric": number | null, "water": number | null}.`

// ReadingsFromSpeech extracts readings from a speech transcript such as
// "điện một trăm năm mươi, nước mười lăm".
func (a *Assistant) ReadingsFromSpeech(ctx context.Context, transcript string) (Readings, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Readings{}, fmt.Errorf("%w: empty transcript", ErrNotRecognised)
	}
	return a.readings(ctx, Request{
		Prompt: fmt.Sprintf(speechPrompt, transcript),
		Schema: readingsSchema,
	})
}

// ReadingsFromPhoto extracts the new readings from a photo of a handwritten
// meter note ("dd 120 -> 150, nc 10 -> 15").
func (a *Assistant) ReadingsFromPhoto(ctx context.Context, photo io.Reader) (Readings, error) {
	img, mime, err := prepareImage(photo, a.maxSide)
	if err != nil {
		return Readings{}, err
	}
	return a.readings(ctx, Request{
		Prompt:   notePrompt,
		Image:    img,
		MIMEType: mime,
		Schema:   readingsSchema,
	})
}

func (a *Assistant) readings(ctx context.Context, req Request) (Readings, error) {
	var raw struct {
		Electric *float64 `json:"electric"`
		Water    *float64 `json:"water"`
	}
	if err := a.generate(ctx, req, &raw); err != nil {
		return Readings{}, err
	}

	var out Readings
	out.Electric = meterValue(raw.Electric)
	out.Water = meterValue(raw.Water)
	if out.Electric == nil {
		out.Missing = append(out.Missing, "electric")
	}
	if out.Water == nil {
		out.Missing = append(out.Missing, "water")
	}
	if out.Electric == nil && out.Water == nil {
		return out, ErrNotRecognised
	}
	return out, nil
}

// meterValue accepts finite non-negative numbers, rounded to whole units.
func meterValue(v *float64) *int64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}

// ──────────────────────────────────────────────────
// ID cards
// ──────────────────────────────────────────────────

var idCardSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"fullName":         {Type: genai.TypeString, Description: "Họ và tên"},
		"dateOfBirth":      {Type: genai.TypeString, Description: "Ngày sinh, dd/mm/yyyy"},
		"idNumber":         {Type: genai.TypeString, Description: "Số CCCD"},
		"sex":              {Type: genai.TypeString, Description: "Giới tính"},
		"nationality":      {Type: genai.TypeString, Description: "Quốc tịch"},
		"placeOfOrigin":    {Type: genai.TypeString, Description: "Quê quán"},
		"placeOfResidence": {Type: genai.TypeString, Description: "Nơi thường trú"},
	},
}

const idCardPrompt = `Trích xuất thông tin từ ảnh căn cước công dân Việt Nam này và trả về một đối tượng JSON với các khóa:
- fullName (Họ và tên)
- dateOfBirth (Ngày sinh, định dạng dd/mm/yyyy)
- idNumber (Số CCCD)
- sex (Giới tính)
- nationality (Quốc tịch)
- placeOfOrigin (Quê quán)
- placeOfResidence (Nơi thường trú)
Nếu không tìm thấy thông tin nào, hãy để giá trị là một chuỗi rỗng.`

// IDCard extracts identity fields from an ID-card photo. Only the identity
// fields of the returned tenant are set; BirthDate is YYYY-MM-DD when the
// card date could be read.
func (a *Assistant) IDCard(ctx context.Context, photo io.Reader) (tenant.Tenant, error) {
	img, mime, err := prepareImage(photo, a.maxSide)
	if err != nil {
		return tenant.Tenant{}, err
	}

	var raw struct {
		FullName         string `json:"fullName"`
		DateOfBirth      string `json:"dateOfBirth"`
		IDNumber         string `json:"idNumber"`
		Sex              string `json:"sex"`
		Nationality      string `json:"nationality"`
		PlaceOfOrigin    string `json:"placeOfOrigin"`
		PlaceOfResidence string `json:"placeOfResidence"`
	}
	if err := a.generate(ctx, Request{Prompt: idCardPrompt, Image: img, MIMEType: mime, Schema: idCardSchema}, &raw); err != nil {
		return tenant.Tenant{}, err
	}

	t := tenant.Tenant{
		Name:        strings.TrimSpace(raw.FullName),
		BirthDate:   birthDate(raw.DateOfBirth),
		IDNumber:    strings.TrimSpace(raw.IDNumber),
		Sex:         strings.TrimSpace(raw.Sex),
		Nationality: strings.TrimSpace(raw.Nationality),
		Origin:      strings.TrimSpace(raw.PlaceOfOrigin),
		Residence:   strings.TrimSpace(raw.PlaceOfResidence),
	}
	if t.Name == "" && t.IDNumber == "" && t.BirthDate == "" && t.Residence == "" && t.Origin == "" {
		return t, ErrNotRecognised
	}
	return t, nil
}

// birthDate accepts YYYY-MM-DD or DD/MM/YYYY and returns YYYY-MM-DD, or ""
// when s is neither.
func birthDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return ""
}

// ──────────────────────────────────────────────────
// Model calls
// ──────────────────────────────────────────────────

func (a *Assistant) generate(ctx context.Context, req Request, dst any) error {
	if !a.Enabled() {
		return ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.model.GenerateJSON(ctx, req)
	if err != nil {
		a.logger.Warn("assist: model call failed", "error", err)
		return fmt.Errorf("assist: generate: %w", err)
	}
	a.logger.Debug("assist: model call", "duration", time.Since(start), "image_bytes", len(req.Image))

	body := stripFence(text)
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

// stripFence removes a Markdown code fence around a JSON reply.
func stripFence(s string) []byte {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		rest = strings.TrimPrefix(rest, "json")
		rest, _, _ = strings.Cut(rest, "```")
		s = strings.TrimSpace(rest)
	}
	return []byte(s)
}
