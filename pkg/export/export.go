// Package export renders annotations as YOLO text, JSON and Parquet, and
// builds the class names sidecar.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/menta2k/roi-annotator/pkg/classes"
	"github.com/menta2k/roi-annotator/pkg/store"
	"github.com/menta2k/roi-annotator/pkg/types"
)

// Output file names
const (
	NamesFile   = "custom.names"
	ParquetFile = "annotations.parquet"
	jsonSuffix  = "_annotations.json"
	yoloExt     = ".txt"
)

var (
	// ErrUnsupportedFormat is returned for formats an operation cannot produce.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrNameCollision is returned when two images map to the same output file.
	ErrNameCollision = errors.New("export file name collision")
)

// Format selects an export encoding.
type Format string

const (
	FormatYOLO    Format = "yolo"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatYOLO, FormatJSON, FormatParquet:
		return f, nil
	case "txt":
		return FormatYOLO, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// File is a named export artifact.
type File struct {
	Name string
	Data []byte
}

// JSONAnnotation is the per-box record of the JSON format.
type JSONAnnotation struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Class  int     `json:"class"`
	Label  string  `json:"label,omitempty"`
}

// Row is one annotation in the Parquet dataset export.
type Row struct {
	Image      string  `parquet:"image"`
	ClassIndex int32   `parquet:"class_index"`
	Label      string  `parquet:"label"`
	XMin       float64 `parquet:"xmin"`
	YMin       float64 `parquet:"ymin"`
	Width      float64 `parquet:"width"`
	Height     float64 `parquet:"height"`
	CenterX    float64 `parquet:"center_x"`
	CenterY    float64 `parquet:"center_y"`
}

// BaseName strips the extension from an image id.
func BaseName(imageID string) string {
	return strings.TrimSuffix(imageID, filepath.Ext(imageID))
}

// YoloLine formats a as "<class> <cx> <cy> <w> <h>".
func YoloLine(a types.Annotation) string {
	cx, cy := a.Box.Center()
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", a.ClassIndex, cx, cy, a.Box.Width, a.Box.Height)
}

// YoloFile formats annotations one line each, newline terminated.
func YoloFile(annotations []types.Annotation) string {
	var sb strings.Builder
	for _, a := range annotations {
		sb.WriteString(YoloLine(a))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ExportAllYolo maps "<basename>.txt" to the YOLO content of every annotated image.
func ExportAllYolo(s *store.Store, _ *classes.Registry) (map[string]string, error) {
	names, err := fileNames(s.ImageIDs(), yoloExt)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(names))
	for i, id := range s.ImageIDs() {
		out[names[i]] = YoloFile(s.ListFor(id))
	}
	return out, nil
}

// fileNames returns "<basename><suffix>" for each id. Ids sharing a basename
// (a.jpg and a.png) are rejected.
func fileNames(ids []string, suffix string) ([]string, error) {
	owner := make(map[string]string, len(ids))
	names := make([]string, len(ids))
	for i, id := range ids {
		name := BaseName(id) + suffix
		if prev, ok := owner[name]; ok {
			return nil, fmt.Errorf("%w: %s and %s both write %s", ErrNameCollision, prev, id, name)
		}
		owner[name] = id
		names[i] = name
	}
	return names, nil
}

// JSON renders one image's annotations as a pretty-printed array.
func JSON(annotations []types.Annotation, reg *classes.Registry) ([]byte, error) {
	return json.MarshalIndent(toJSON(annotations, reg), "", "  ")
}

// DatasetJSON renders the whole store as an object keyed by image id.
func DatasetJSON(s *store.Store, reg *classes.Registry) ([]byte, error) {
	dataset := make(map[string][]JSONAnnotation, s.Len())
	for _, id := range s.ImageIDs() {
		dataset[id] = toJSON(s.ListFor(id), reg)
	}
	return json.MarshalIndent(dataset, "", "  ")
}

func toJSON(annotations []types.Annotation, reg *classes.Registry) []JSONAnnotation {
	out := make([]JSONAnnotation, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, JSONAnnotation{
			XMin:   a.Box.XMin,
			YMin:   a.Box.YMin,
			Width:  a.Box.Width,
			Height: a.Box.Height,
			Class:  a.ClassIndex,
			Label:  labelFor(reg, a.ClassIndex),
		})
	}
	return out
}

func labelFor(reg *classes.Registry, index int) string {
	if reg == nil {
		return ""
	}
	name, err := reg.NameAt(index)
	if err != nil {
		return ""
	}
	return name
}

// ClassNamesFile lists the registry's names in index order, one per line.
func ClassNamesFile(reg *classes.Registry) string {
	return strings.Join(reg.Names(), "\n")
}

// Parquet encodes every annotation of the store as one row.
func Parquet(s *store.Store, reg *classes.Registry) ([]byte, error) {
	rows := make([]Row, 0, s.Count())
	for _, id := range s.ImageIDs() {
		for _, a := range s.ListFor(id) {
			cx, cy := a.Box.Center()
			rows = append(rows, Row{
				Image:      id,
				ClassIndex: int32(a.ClassIndex),
				Label:      labelFor(reg, a.ClassIndex),
				XMin:       a.Box.XMin,
				YMin:       a.Box.YMin,
				Width:      a.Box.Width,
				Height:     a.Box.Height,
				CenterX:    cx,
				CenterY:    cy,
			})
		}
	}

	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, fmt.Errorf("failed to encode parquet: %w", err)
	}
	return buf.Bytes(), nil
}

// Dataset builds every file of a full export in the given format followed by
// the class names sidecar. A store without annotations yields no files.
func Dataset(s *store.Store, reg *classes.Registry, format Format) ([]File, error) {
	if s.Len() == 0 {
		return nil, nil
	}

	ids := s.ImageIDs()
	var files []File
	switch format {
	case FormatYOLO:
		names, err := fileNames(ids, yoloExt)
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			files = append(files, File{
				Name: names[i],
				Data: []byte(YoloFile(s.ListFor(id))),
			})
		}
	case FormatJSON:
		names, err := fileNames(ids, jsonSuffix)
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			data, err := JSON(s.ListFor(id), reg)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s: %w", id, err)
			}
			files = append(files, File{Name: names[i], Data: data})
		}
	case FormatParquet:
		data, err := Parquet(s, reg)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: ParquetFile, Data: data})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	files = append(files, File{Name: NamesFile, Data: []byte(ClassNamesFile(reg))})
	return files, nil
}

// Preview renders the whole dataset as text for the clipboard.
func Preview(s *store.Store, reg *classes.Registry, format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := DatasetJSON(s, reg)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatYOLO:
		blocks := make([]string, 0, s.Len())
		for _, id := range s.ImageIDs() {
			blocks = append(blocks, "# "+id+"\n"+YoloFile(s.ListFor(id)))
		}
		return strings.Join(blocks, "\n"), nil
	default:
		return "", fmt.Errorf("%w: no text preview for %s", ErrUnsupportedFormat, format)
	}
}
