// Package pptx extracts per-slide text from PresentationML (.pptx) decks.
package pptx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"

	maxPartSize = 64 << 20
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, documentPath string) ([]domain.SlideRecord, error) {
	zr, err := zip.OpenReader(documentPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "open pptx", err)
	}
	defer zr.Close()

	records, err := ExtractSlides(ctx, &zr.Reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "extract pptx slides", err)
	}
	return records, nil
}

// ExtractSlides walks slides in presentation order (sldIdLst), numbering
// them from 1. Within a slide, top-level shapes with a text body are read in
// tree order and each non-blank paragraph becomes one trimmed text block.
func ExtractSlides(ctx context.Context, zr *zip.Reader) ([]domain.SlideRecord, error) {
	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[strings.TrimPrefix(f.Name, "/")] = f
	}

	slidePaths, err := slideOrder(parts)
	if err != nil {
		return nil, err
	}

	records := make([]domain.SlideRecord, 0, len(slidePaths))
	for i, slidePath := range slidePaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, ok := parts[slidePath]
		if !ok {
			return nil, fmt.Errorf("slide part %s is missing", slidePath)
		}
		var slide slideXML
		if err := decodePart(part, &slide); err != nil {
			return nil, fmt.Errorf("decode %s: %w", slidePath, err)
		}
		records = append(records, domain.SlideRecord{
			SlideNumber: i + 1,
			TextBlocks:  slide.textBlocks(),
		})
	}
	return records, nil
}

func slideOrder(parts map[string]*zip.File) ([]string, error) {
	presPart, ok := parts[presentationPart]
	if !ok {
		return nil, fmt.Errorf("%s not found: not a presentation", presentationPart)
	}
	var pres presentationXML
	if err := decodePart(presPart, &pres); err != nil {
		return nil, fmt.Errorf("decode presentation: %w", err)
	}
	if len(pres.SlideIDs) == 0 {
		return nil, nil
	}

	relsPart, ok := parts[presentationRels]
	if !ok {
		return nil, fmt.Errorf("%s not found", presentationRels)
	}
	var rels relationshipsXML
	if err := decodePart(relsPart, &rels); err != nil {
		return nil, fmt.Errorf("decode presentation relationships: %w", err)
	}
	targets := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		targets[rel.ID] = resolveTarget(rel.Target)
	}

	out := make([]string, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", id.RelID)
		}
		out = append(out, target)
	}
	return out, nil
}

func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join("ppt", target)
}

func decodePart(f *zip.File, out any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(io.LimitReader(rc, maxPartSize)).Decode(out)
}

type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type slideXML struct {
	Shapes []struct {
		TxBody *struct {
			Paragraphs []paragraphXML `xml:"p"`
		} `xml:"txBody"`
	} `xml:"cSld>spTree>sp"`
}

func (s slideXML) textBlocks() []string {
	blocks := []string{}
	for _, shape := range s.Shapes {
		if shape.TxBody == nil {
			continue
		}
		for _, p := range shape.TxBody.Paragraphs {
			if text := strings.TrimSpace(p.text); text != "" {
				blocks = append(blocks, text)
			}
		}
	}
	return blocks
}

// paragraphXML collects run and field text in order; a:br becomes a newline.
type paragraphXML struct {
	text string
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	inText := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText++
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name == start.Name {
				p.text = sb.String()
				return nil
			}
			if t.Name.Local == "t" && inText > 0 {
				inText--
			}
		case xml.CharData:
			if inText > 0 {
				sb.Write(t)
			}
		}
	}
}
