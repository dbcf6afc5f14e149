package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/sensor"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644

	csvHeader = "timestamp,sensor,voltage,current,power\n"
)

// CSVSink writes measurements as comma-separated text. Markers appear as
// comment rows ("# label") at the position they were recorded, so the phases
// of a run can be recovered from the stream.
type CSVSink struct {
	file *os.File
	w    *bufio.Writer
}

func NewCSV(path string) (*CSVSink, error) {
	errFactory := errors.New()

	if path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	s := &CSVSink{
		file: file,
		w:    bufio.NewWriter(file),
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	// Only a fresh file gets the header; appending to an existing run
	// must not interleave a second one.
	if info.Size() == 0 {
		if _, err := s.w.WriteString(csvHeader); err != nil {
			file.Close()
			return nil, errFactory.Wrap(ErrWriteFailed, err)
		}
	}

	return s, nil
}

func (s *CSVSink) WriteMeasurement(m sensor.Measurement) error {
	_, err := fmt.Fprintf(s.w, "%d,%s,%g,%g,%g\n",
		m.Timestamp.Value, m.Sensor, m.Voltage, m.Current, m.Power)
	if err != nil {
		return errors.New().Wrap(ErrWriteFailed, err)
	}

	return nil
}

func (s *CSVSink) WriteMarker(label string) error {
	if _, err := fmt.Fprintf(s.w, "# %s\n", label); err != nil {
		return errors.New().Wrap(ErrWriteFailed, err)
	}

	return nil
}

func (s *CSVSink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return errors.New().Wrap(ErrWriteFailed, err)
	}

	return nil
}

func (s *CSVSink) Close() error {
	errFactory := errors.New()

	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return errFactory.Wrap(ErrStorageClose, err)
	}

	if err := s.file.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	return nil
}
