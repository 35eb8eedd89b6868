package logger

import (
	"fmt"
	"log"
	"os"

	"github.com/remiges-tech/logharbour/logharbour"
)

// Logger is the single-method surface pdoflowctl's operator-facing
// commands log through, as an alternative to logharbour's fuller
// Info/Warn/Error API for the handful of call sites that just want to
// report one outcome line.
type Logger interface {
	Log(message string)
}

// ConsoleLogger logs messages to stdout -- used by pdoflowctl's "run"
// subcommand to report an ad hoc entry-point invocation's result.
type ConsoleLogger struct{}

func (cl *ConsoleLogger) Log(message string) {
	fmt.Println(message)
}

// FileLogger logs messages to a file on disk.
type FileLogger struct {
	FilePath string
}

func (fl *FileLogger) Log(message string) {
	if fl.FilePath == "" {
		log.Fatalln("File path cannot be empty")
	}

	file, err := os.OpenFile(fl.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Error opening log file: %v", err)
	}
	defer file.Close()

	logger := log.New(file, "", log.LstdFlags)
	logger.Println(message)
}

type LogHarbour struct {
	*logharbour.Logger
}

func (lh *LogHarbour) Log(message string) {
	lh.LogActivity("", message)
}
