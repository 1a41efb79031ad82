package ingest

import "errors"

var errBlockTooLarge = errors.New("ingest: accumulated block exceeds max size")
