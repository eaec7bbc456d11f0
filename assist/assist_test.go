package assist

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply string
	err   error
	got   []Request
}

func (m *fakeModel) GenerateJSON(_ context.Context, req Request) (string, error) {
	m.got = append(m.got, req)
	return m.reply, m.err
}

func photo(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return bytes.NewReader(buf.Bytes())
}

func TestReadingsFromSpeech(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		electric *int64
		water    *int64
		missing  []string
		err      error
	}{
		{
			name:     "both",
			reply:    `{"electric": 150, "water": 15}`,
			electric: ptr(150), water: ptr(15),
		},
		{
			name:     "fenced and fractional",
			reply:    "```json\n{\"electric\": 149.6, \"water\": null}\n```",
			electric: ptr(150),
			missing:  []string{"water"},
		},
		{
			name:    "negative is ignored",
			reply:   `{"electric": -3, "water": 12}`,
			water:   ptr(12),
			missing: []string{"electric"},
		},
		{
			name:    "nothing",
			reply:   `{"electric": null, "water": null}`,
			missing: []string{"electric", "water"},
			err:     ErrNotRecognised,
		},
		{
			name:  "not json",
			reply: "xin lỗi",
			err:   ErrBadResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{reply: tt.reply}
			got, err := New(m).ReadingsFromSpeech(context.Background(), "điện một trăm năm mươi, nước mười lăm")
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				if errors.Is(tt.err, ErrBadResponse) {
					return
				}
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.electric, got.Electric)
			assert.Equal(t, tt.water, got.Water)
			assert.Equal(t, tt.missing, got.Missing)

			require.Len(t, m.got, 1)
			assert.Contains(t, m.got[0].Prompt, "một trăm năm mươi")
			assert.Empty(t, m.got[0].Image)
			assert.NotNil(t, m.got[0].Schema)
		})
	}
}

func TestReadingsFromSpeechEmptyTranscript(t *testing.T) {
	m := &fakeModel{}
	_, err := New(m).ReadingsFromSpeech(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotRecognised)
	assert.Empty(t, m.got)
}

func TestReadingsFromPhotoDownscales(t *testing.T) {
	m := &fakeModel{reply: `{"electric": 150, "water": 15}`}
	a := New(m, WithMaxImageSide(100))

	got, err := a.ReadingsFromPhoto(context.Background(), photo(t, 400, 200))
	require.NoError(t, err)
	assert.Equal(t, ptr(150), got.Electric)

	require.Len(t, m.got, 1)
	req := m.got[0]
	assert.Equal(t, "image/jpeg", req.MIMEType)
	assert.Contains(t, req.Prompt, "->")

	img, err := imaging.Decode(bytes.NewReader(req.Image))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestReadingsFromPhotoRejectsGarbage(t *testing.T) {
	m := &fakeModel{}
	_, err := New(m).ReadingsFromPhoto(context.Background(), strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrBadImage)
	assert.Empty(t, m.got)
}

func TestIDCard(t *testing.T) {
	m := &fakeModel{reply: `{
		"fullName": " Trần Thị Bình ",
		"dateOfBirth": "05/09/1998",
		"idNumber": "079198001234",
		"sex": "Nữ",
		"nationality": "Việt Nam",
		"placeOfOrigin": "Huế",
		"placeOfResidence": "Quận 1, TP. Hồ Chí Minh"
	}`}
	got, err := New(m).IDCard(context.Background(), photo(t, 64, 40))
	require.NoError(t, err)

	assert.Equal(t, "Trần Thị Bình", got.Name)
	assert.Equal(t, "1998-09-05", got.BirthDate)
	assert.Equal(t, "079198001234", got.IDNumber)
	assert.Equal(t, "Nữ", got.Sex)
	assert.Equal(t, "Huế", got.Origin)
	assert.Equal(t, "Quận 1, TP. Hồ Chí Minh", got.Residence)
	assert.True(t, got.ID.IsNil())
}

func TestIDCardNothingFound(t *testing.T) {
	m := &fakeModel{reply: `{"fullName": "", "dateOfBirth": "không rõ"}`}
	_, err := New(m).IDCard(context.Background(), photo(t, 32, 32))
	assert.ErrorIs(t, err, ErrNotRecognised)
}

func TestUnavailable(t *testing.T) {
	a := New(nil)
	assert.False(t, a.Enabled())
	_, err := a.ReadingsFromSpeech(context.Background(), "điện 150")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestModelError(t *testing.T) {
	m := &fakeModel{err: errors.New("quota exceeded")}
	_, err := New(m).ReadingsFromSpeech(context.Background(), "điện 150")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestBirthDate(t *testing.T) {
	tests := map[string]string{
		"1998-09-05": "1998-09-05",
		"05/09/1998": "1998-09-05",
		"5/9/1998":   "1998-09-05",
		"31/02/1998": "",
		"":           "",
	}
	for in, want := range tests {
		if got := birthDate(in); got != want {
			t.Errorf("birthDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func ptr(n int64) *int64 { return &n }
