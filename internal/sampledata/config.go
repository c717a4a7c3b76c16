package sampledata

import "github.com/okian/perfboard/pkg/logger"

// Config holds configuration for one load run.
type Config struct {
	Dir      string // Directory holding the source files
	Clear    bool   // Remove every performance row before loading
	Generate bool   // Write synthetic fixture workbooks into Dir first
	Seed     uint64 // Seed for generated fixtures
	Verbose  bool   // Log every aggregated row

	// Logger receives progress messages; nil discards them.
	Logger logger.Logger
}

func orNop(l logger.Logger) logger.Logger {
	if l == nil {
		return logger.NewNop()
	}
	return l
}

// Key identifies one aggregated record.
type Key struct {
	ReferenceDate string
	Department    string
}

// Stats holds load statistics.
type Stats struct {
	KPIRows         int
	PublicationRows int
	ProjectRows     int
	SkippedRows     int
	MissingSources  []string
	Records         int
	Cleared         int64
}
