package session

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/jointangle/internal/jointangle"
)

// AnglesHeader is the first row of every angles CSV.
var AnglesHeader = []string{"time_s", "angle_deg"}

// Files names the outputs of a saved session, relative to the recordings
// directory.
type Files struct {
	Raw    string `json:"raw_file"`
	Angles string `json:"angles_file"`
}

// FileNames returns the raw and angles names for prefix.
func FileNames(prefix string) Files {
	return Files{Raw: prefix + "_raw.jsonl", Angles: prefix + "_angles.csv"}
}

// Save writes the raw pairs and the angle series under dir. Times are
// sample indices divided by rate.
func Save(dir, prefix string, m Measurement, rate float64) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create recordings dir: %w", err)
	}
	files := FileNames(prefix)

	if err := writeFile(filepath.Join(dir, files.Raw), func(w io.Writer) error {
		return WriteRaw(w, m.Pairs)
	}); err != nil {
		return Files{}, err
	}
	if err := writeFile(filepath.Join(dir, files.Angles), func(w io.Writer) error {
		return WriteAngles(w, m.Angles, rate)
	}); err != nil {
		return Files{}, err
	}

	logf("saved %d samples to %s and %s", len(m.Pairs), files.Raw, files.Angles)
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteRaw writes one JSON pair per line.
func WriteRaw(w io.Writer, pairs []jointangle.ReadingPair) error {
	enc := json.NewEncoder(w)
	for _, p := range pairs {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// WriteAngles writes the header and one row per angle. A nil angle leaves
// the angle cell empty.
func WriteAngles(w io.Writer, angles []*float64, rate float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AnglesHeader); err != nil {
		return err
	}
	for i, a := range angles {
		cell := ""
		if a != nil {
			cell = strconv.FormatFloat(*a, 'f', -1, 64)
		}
		if err := cw.Write([]string{fmt.Sprintf("%.3f", float64(i)/rate), cell}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadAngles parses an angles CSV. Empty angle cells come back as nil.
func ReadAngles(r io.Reader) (times []float64, angles []*float64, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read angles header: %w", err)
	}
	if strings.TrimSpace(header[0]) != AnglesHeader[0] || strings.TrimSpace(header[1]) != AnglesHeader[1] {
		return nil, nil, fmt.Errorf("unexpected angles header %q", header)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read angles: %w", err)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: bad time %q", line, rec[0])
		}
		times = append(times, t)

		cell := strings.TrimSpace(rec[1])
		if cell == "" {
			angles = append(angles, nil)
			continue
		}
		a, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: bad angle %q", line, rec[1])
		}
		angles = append(angles, &a)
	}
	return times, angles, nil
}

// ReadRaw parses a raw capture, skipping lines that are not reading pairs.
func ReadRaw(r io.Reader) ([]jointangle.ReadingPair, error) {
	var pairs []jointangle.ReadingPair
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if p, err := jointangle.ParseReadingPair([]byte(line)); err == nil {
			pairs = append(pairs, p)
		}
	}
	return pairs, scanner.Err()
}
