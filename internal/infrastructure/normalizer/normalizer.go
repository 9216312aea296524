package normalizer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"medvault/internal/core/domain"
)

// Bounding box for inlined images. Downscaling before the classification
// request bounds the external payload size; aspect ratio is preserved and
// images are never upscaled.
const (
	MaxInlineWidth  = 1000
	MaxInlineHeight = 1400

	inlineJPEGQuality = 80
)

// Normalizer converts one raw input file into exactly one of the two
// service-consumable representations: inline binary with a mime type, or
// extracted plain text.
type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Normalize(_ context.Context, file domain.InputFile) (domain.Payload, error) {
	switch {
	case strings.HasPrefix(file.MimeType, "image/"):
		return n.inlineImage(file)
	case file.MimeType == "application/pdf":
		return n.inlinePDF(file)
	case isWordProcessorType(file.MimeType):
		return n.extractWordText(file)
	default:
		// Accepted but unrecognized types take the image path.
		return n.inlineImage(file)
	}
}

func (n *Normalizer) inlineImage(file domain.InputFile) (domain.Payload, error) {
	img, _, err := image.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return domain.Payload{}, fmt.Errorf("decode image %s: %w", file.Name, err)
	}

	bounds := img.Bounds()
	w, h := FitWithin(bounds.Dx(), bounds.Dy(), MaxInlineWidth, MaxInlineHeight)
	if w != bounds.Dx() || h != bounds.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: inlineJPEGQuality}); err != nil {
		return domain.Payload{}, fmt.Errorf("encode image %s: %w", file.Name, err)
	}

	return domain.Payload{
		Kind:     domain.PayloadInline,
		MimeType: "image/jpeg",
		Data:     buf.Bytes(),
	}, nil
}

// inlinePDF passes PDF bytes through unchanged after a structural validation,
// so a corrupt file fails here instead of inside the classification call.
func (n *Normalizer) inlinePDF(file domain.InputFile) (domain.Payload, error) {
	if err := api.Validate(bytes.NewReader(file.Data), nil); err != nil {
		return domain.Payload{}, fmt.Errorf("validate pdf %s: %w", file.Name, err)
	}
	return domain.Payload{
		Kind:     domain.PayloadInline,
		MimeType: "application/pdf",
		Data:     file.Data,
	}, nil
}

func (n *Normalizer) extractWordText(file domain.InputFile) (domain.Payload, error) {
	text, err := extractArchiveText(file.Data)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("extract text from %s: %w", file.Name, err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.Payload{}, fmt.Errorf("extract text from %s: document contains no text", file.Name)
	}
	return domain.Payload{
		Kind: domain.PayloadText,
		Text: fmt.Sprintf("File: %s\n\n%s", file.Name, text),
	}, nil
}

// Only zip-based word-processor formats; legacy OLE .doc never reaches the
// normalizer because the ingestion boundary excludes its mime type.
func isWordProcessorType(mimeType string) bool {
	switch mimeType {
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text":
		return true
	default:
		return false
	}
}

// FitWithin returns dimensions scaled uniformly to fit inside maxW x maxH.
// Dimensions already inside the box come back unchanged.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	sw := int(float64(w) * scale)
	sh := int(float64(h) * scale)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// Both DOCX and ODT are zip archives carrying the body as XML. The text
// lives in character data; paragraph end elements become line breaks.
var wordBodyEntries = []string{"word/document.xml", "content.xml"}

func extractArchiveText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open document archive: %w", err)
	}

	for _, name := range wordBodyEntries {
		for _, entry := range zr.File {
			if entry.Name != name {
				continue
			}
			rc, err := entry.Open()
			if err != nil {
				return "", fmt.Errorf("open %s: %w", name, err)
			}
			text, err := xmlText(rc)
			closeErr := rc.Close()
			if err != nil {
				return "", fmt.Errorf("parse %s: %w", name, err)
			}
			if closeErr != nil {
				return "", fmt.Errorf("close %s: %w", name, closeErr)
			}
			return text, nil
		}
	}
	return "", errors.New("no document body entry in archive")
}

func xmlText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}
