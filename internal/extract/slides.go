package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractSlides walks the deck slide by slide, in slide order: the shape
// text of each slide first, then its speaker notes if present. Everything
// non-blank is newline-joined across the whole deck.
func extractSlides(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	slides := make(map[int]*zip.File)
	notes := make(map[int]*zip.File)
	var order []int
	for _, f := range zr.File {
		if m := slidePathRe.FindStringSubmatch(f.Name); m != nil {
			nr, _ := strconv.Atoi(m[1])
			slides[nr] = f
			order = append(order, nr)
			continue
		}
		var nr int
		if n, err := fmt.Sscanf(f.Name, "ppt/notesSlides/notesSlide%d.xml", &nr); n == 1 && err == nil {
			notes[nr] = f
		}
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("%w: no slides found", ErrExtractionFailed)
	}
	sort.Ints(order)

	var lines []string
	for _, nr := range order {
		slideLines, err := drawingMLLines(slides[nr])
		if err != nil {
			return "", fmt.Errorf("%w: slide %d: %v", ErrExtractionFailed, nr, err)
		}
		lines = append(lines, slideLines...)

		if noteFile, ok := notes[nr]; ok {
			noteLines, err := drawingMLLines(noteFile)
			if err != nil {
				return "", fmt.Errorf("%w: notes %d: %v", ErrExtractionFailed, nr, err)
			}
			lines = append(lines, noteLines...)
		}
	}

	return strings.Join(lines, "\n"), nil
}

// drawingMLLines returns the non-blank paragraphs (<a:p>) of one slide or
// notes part, each paragraph's text runs (<a:t>) concatenated in order.
func drawingMLLines(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)

	var lines []string
	var current strings.Builder
	inParagraph := false
	inRun := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inRun = inParagraph
			}
		case xml.CharData:
			if inRun {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				if inParagraph {
					if text := strings.TrimSpace(current.String()); text != "" {
						lines = append(lines, text)
					}
				}
				inParagraph = false
			}
		}
	}

	return lines, nil
}
