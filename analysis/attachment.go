package analysis

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/andrewpaige1/prepass-api/apperr"
)

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
)

// Limits bounds what a single uploaded file may be.
type Limits struct {
	MaxFileBytes      int64
	MaxImageDimension int
}

// DefaultLimits matches the limits the web client enforces.
var DefaultLimits = Limits{
	MaxFileBytes:      10 << 20,
	MaxImageDimension: 2048,
}

// Attachment is an accepted image or PDF ready to be sent to the gateway.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// DataURL returns the attachment as a base64 data URL.
func (a Attachment) DataURL() string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// IsPDF reports whether the attachment is a PDF document.
func (a Attachment) IsPDF() bool {
	return a.MIMEType == MimePDF
}

// Upload is a raw file as received from the client.
type Upload struct {
	Name         string
	DeclaredType string
	Data         []byte
}

// Rejection describes an upload that was not accepted.
type Rejection struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// decodable lists the types imaging can decode and re-encode.
var decodable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
}

// PrepareAttachment checks one upload against limits. The content type is sniffed
// from the bytes; the declared type only breaks ties for formats the sniffer
// does not know. Images with a side longer than MaxImageDimension are scaled
// down and re-encoded as JPEG.
func PrepareAttachment(up Upload, limits Limits) (Attachment, error) {
	name := up.Name
	if name == "" {
		name = "file"
	}

	if len(up.Data) == 0 {
		return Attachment{}, apperr.Validation(fmt.Sprintf("%s is empty", name))
	}
	if limits.MaxFileBytes > 0 && int64(len(up.Data)) > limits.MaxFileBytes {
		return Attachment{}, apperr.Validation(fmt.Sprintf("%s is too large. Max size is %dMB", name, limits.MaxFileBytes>>20))
	}

	mimeType := detectType(up)
	if mimeType != MimePDF && !strings.HasPrefix(mimeType, "image/") {
		return Attachment{}, apperr.Validation(fmt.Sprintf("%s is not an image or PDF", name))
	}

	att := Attachment{Name: name, MIMEType: mimeType, Data: up.Data}
	if !decodable[mimeType] || limits.MaxImageDimension <= 0 {
		return att, nil
	}

	img, err := imaging.Decode(bytes.NewReader(up.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Attachment{}, apperr.Validation(fmt.Sprintf("%s could not be read as an image", name))
	}

	bounds := img.Bounds()
	if bounds.Dx() <= limits.MaxImageDimension && bounds.Dy() <= limits.MaxImageDimension {
		return att, nil
	}

	resized := imaging.Fit(img, limits.MaxImageDimension, limits.MaxImageDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return Attachment{}, apperr.Validation(fmt.Sprintf("%s could not be resized", name))
	}
	att.MIMEType = MimeJPEG
	att.Data = buf.Bytes()
	return att, nil
}

func detectType(up Upload) string {
	sniffed := http.DetectContentType(up.Data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	// heic and friends sniff as octet-stream
	declared := strings.ToLower(strings.TrimSpace(up.DeclaredType))
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return sniffed
}

// Collect builds an analysis request from free text and a batch of uploads.
// A rejected upload never stops the others from being accepted.
func Collect(text string, uploads []Upload, limits Limits) (Request, []Rejection) {
	req := Request{Text: strings.TrimSpace(text)}
	var rejected []Rejection
	for _, up := range uploads {
		att, err := PrepareAttachment(up, limits)
		if err != nil {
			rejected = append(rejected, Rejection{Name: up.Name, Error: apperr.UserMessage(err, "File rejected")})
			continue
		}
		if att.IsPDF() {
			req.PDFs = append(req.PDFs, att)
		} else {
			req.Images = append(req.Images, att)
		}
	}
	return req, rejected
}
