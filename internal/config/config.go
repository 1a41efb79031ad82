// Package config loads the handful of parameters carbonpoold needs to
// boot: where the log lives, how big its segments are, how many of
// them to keep, and where to listen. None of this is part of the
// storage core; it exists to make the binary runnable.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the parameters the log core requires plus the two
// listen addresses the ingest and read-API collaborators bind to.
type Config struct {
	DataDir     string
	SegmentSize int64
	MaxSegments int
	IngestAddr  string
	APIAddr     string
}

// Default mirrors the fallbacks original_source/carbon-pool.py uses
// when a key is absent from the config file.
func Default() Config {
	return Config{
		DataDir:     "/var/lib/carbon-pool",
		SegmentSize: 16 * 1024 * 1024,
		MaxSegments: 10,
		IngestAddr:  "127.0.0.1:2003",
		APIAddr:     "127.0.0.1:2002",
	}
}

// Load reads a `key = value` file and overlays it on Default(). A
// missing file is not an error; it just means the defaults stand.
// Size-string suffixes (16M, 1G, ...) are out of scope: segment-size
// must be a plain decimal byte count.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	vals, err := parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	if v, ok := vals["data-dir"]; ok {
		cfg.DataDir = v
	}
	if v, ok := vals["segment-size"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: segment-size: %w", err)
		}
		cfg.SegmentSize = n
	}
	if v, ok := vals["max-segments"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: max-segments: %w", err)
		}
		cfg.MaxSegments = n
	}
	if v, ok := vals["ingest-addr"]; ok {
		cfg.IngestAddr = v
	}
	if v, ok := vals["api-addr"]; ok {
		cfg.APIAddr = v
	}

	return cfg, nil
}

// parse implements the grammar of carbonpool/config.py's
// parse_config: '#' starts a trailing comment, blank lines are
// skipped, every remaining line must contain an '='. The key is the
// text before the first '='; everything after it is the value.
func parse(f *os.File) (map[string]string, error) {
	vals := map[string]string{}

	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i != -1 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid syntax at line %d", lineNo)
		}
		vals[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return vals, nil
}
