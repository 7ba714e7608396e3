package sensors

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/i474232898/rain-station/internal/weather"
)

// DefaultW1Dir is where the kernel's one-wire bus exports its devices.
const DefaultW1Dir = "/sys/bus/w1/devices"

var (
	errCRC       = errors.New("w1: crc check failed")
	errMalformed = errors.New("w1: malformed w1_slave output")
)

// W1Thermometer reads a one-wire temperature sensor through the w1_therm
// kernel driver's w1_slave file.
type W1Thermometer struct {
	path     string
	readFile func(string) ([]byte, error)
}

// NewW1Thermometer reads from the given w1_slave path.
func NewW1Thermometer(path string) *W1Thermometer {
	return &W1Thermometer{path: path, readFile: os.ReadFile}
}

// DiscoverW1 picks the first temperature sensor (family code 28) under baseDir.
func DiscoverW1(baseDir string) (*W1Thermometer, error) {
	if baseDir == "" {
		baseDir = DefaultW1Dir
	}
	matches, err := filepath.Glob(filepath.Join(baseDir, "28*"))
	if err != nil {
		return nil, fmt.Errorf("%w: w1 glob: %v", weather.ErrHardwareUnavailable, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no one-wire temperature sensor under %s", weather.ErrHardwareUnavailable, baseDir)
	}
	sort.Strings(matches)
	return NewW1Thermometer(filepath.Join(matches[0], "w1_slave")), nil
}

// Path returns the w1_slave file being read.
func (t *W1Thermometer) Path() string { return t.path }

// Celsius performs one read. A failed CRC is reported as an error so the
// caller's retry policy decides whether to try again.
func (t *W1Thermometer) Celsius(context.Context) (float64, error) {
	data, err := t.readFile(t.path)
	if err != nil {
		return 0, err
	}
	return parseW1Slave(data)
}

// parseW1Slave parses the two-line w1_slave format:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(data []byte) (float64, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if len(lines) < 2 {
		return 0, errMalformed
	}
	if !strings.HasSuffix(lines[0], "YES") {
		return 0, errCRC
	}

	i := strings.Index(lines[1], "t=")
	if i < 0 {
		return 0, errMalformed
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(lines[1][i+2:]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return float64(milli) / 1000.0, nil
}
