// Command dlpcopy is the CLI boundary around the copy-and-redact core:
// a "cp" subcommand that transfers files between the URI schemes
// internal/fsconn understands while redacting PII in flight, and an
// "ls" subcommand that lists a source the same matcher-filtered way
// without downloading bodies. Flag wiring follows the teacher
// (cognusion/ripfix)'s flat pflag-plus-package-vars style, split across
// two FlagSets because this CLI has two subcommands where ripfix has
// one.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/cognusion/go-racket"
	"github.com/cognusion/go-sequence"
	"github.com/gofrs/flock"
	"github.com/spf13/pflag"

	"github.com/redacter/dlpcopy/internal/convert"
	"github.com/redacter/dlpcopy/internal/copy"
	"github.com/redacter/dlpcopy/internal/fsconn"
	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/stream"
	"github.com/redacter/dlpcopy/internal/throttle"
)

var (
	logWriter     io.Writer = os.Stderr
	discardWriter io.Writer = io.Discard
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var code int
	switch os.Args[1] {
	case "cp":
		code = runCp(os.Args[2:])
	case "ls":
		code = runLs(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		code = 0
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		code = 1
	}
	os.Exit(code)
}

func usage() {
	fmt.Println("dlpcopy: copy files while redacting PII in flight")
	fmt.Println("usage:")
	fmt.Println("  dlpcopy cp [flags] <source> <destination>")
	fmt.Println("  dlpcopy ls [flags] <source>")
}

// runCp implements the "cp" subcommand (§6 CLI surface).
func runCp(args []string) int {
	fs := pflag.NewFlagSet("cp", pflag.ContinueOnError)

	var (
		maxSizeLimit    int64
		maxFilesLimit   int
		filenameFilter  string
		mimeOverrideRaw []string
		redactNames     []string
		allowUnsup      bool
		csvHeadersOff   bool
		csvDelimiter    string
		samplingSize    int
		limitDlp        string
		resultJSON      string
		flockPath       string
		skipFlock       bool
		useBar          bool
		logFile         string
		debug           bool

		cfg redacterConfig
	)

	fs.Int64Var(&maxSizeLimit, "max-size-limit", 0, "Skip files larger than this many bytes (0 = no limit).")
	fs.IntVarP(&maxFilesLimit, "max-files-limit", "n", 0, "Stop listing after this many files (0 = no limit).")
	fs.StringVar(&filenameFilter, "filename-filter", "", "Glob the relative path must match to be copied.")
	fs.StringArrayVar(&mimeOverrideRaw, "mime-override", nil, "Repeatable GLOB=MIME media-type override, first match wins.")
	fs.StringArrayVar(&redactNames, "redact", nil, "Repeatable redacter to apply, in invocation order: gcp-dlp, aws-comprehend, aws-bedrock, openai-llm, gemini-llm, ms-presidio, http-pii, image-redactor.")
	fs.BoolVar(&allowUnsup, "allow-unsupported-copies", false, "Copy files even when no configured redacter supports them.")
	fs.BoolVar(&csvHeadersOff, "csv-headers-disable", false, "Treat the first CSV row as data, not a header.")
	fs.StringVar(&csvDelimiter, "csv-delimiter", "", "Single-byte CSV field delimiter (default ',').")
	fs.IntVar(&samplingSize, "sampling-size", 0, "Truncate text payloads to this many Unicode code points before redaction (0 = no truncation).")
	fs.StringVar(&limitDlp, "limit-dlp-requests", "", "Rate cap on redactor calls, e.g. '5rps' or '120rpm'.")
	fs.StringVar(&resultJSON, "result-json", "", "Write the CopyCommandResult summary as JSON to this path.")
	fs.StringVar(&flockPath, "flock", os.TempDir()+"/dlpcopy.lock", "Lock file guarding concurrent invocations against the same destination.")
	fs.BoolVar(&skipFlock, "ignore-flock", false, "DANGER: skip flocking.")
	fs.BoolVarP(&useBar, "bar", "b", false, "Show a progress bar instead of per-file log lines.")
	fs.StringVarP(&logFile, "log", "l", "", "Write log lines to this file instead of stderr.")
	fs.BoolVar(&debug, "debug", false, "Enable debug logging (disables --bar).")

	fs.StringVar(&cfg.gcpProject, "gcp-project", "", "GCP project ID for gcp-dlp.")
	fs.StringVar(&cfg.awsComprehendLanguage, "comprehend-language", "en", "Language code for aws-comprehend.")
	fs.StringVar(&cfg.awsBedrockModel, "aws-bedrock-model", "", "Bedrock model ID for aws-bedrock.")
	fs.StringVar(&cfg.openaiAPIKey, "openai-api-key", os.Getenv("OPENAI_API_KEY"), "API key for openai-llm.")
	fs.StringVar(&cfg.openaiModel, "openai-model", "gpt-4o", "Chat model for openai-llm.")
	fs.StringVar(&cfg.geminiAPIKey, "gemini-api-key", os.Getenv("GEMINI_API_KEY"), "API key for gemini-llm.")
	fs.StringVar(&cfg.geminiModel, "gemini-model", "gemini-2.0-flash", "Model for gemini-llm.")
	fs.BoolVar(&cfg.geminiNativeImage, "gemini-native-image", false, "Ask gemini-llm to return a redacted image directly instead of coordinates.")
	fs.StringVar(&cfg.presidioURL, "presidio-url", "", "Analyzer endpoint for ms-presidio.")
	fs.StringVar(&cfg.presidioLanguage, "presidio-language", "en", "Language for ms-presidio.")
	fs.StringVar(&cfg.httpPiiURL, "httppii-url", "", "Endpoint for http-pii.")
	fs.StringVar(&cfg.httpPiiLanguage, "httppii-language", "en", "Language for http-pii.")
	fs.StringArrayVar(&cfg.imageCoords, "image-redact-coord", nil, "Repeatable x1,y1,x2,y2[,text] rectangle for image-redactor.")
	fs.Float64Var(&cfg.imageApprox, "image-redact-approx", 0.10, "Fractional safety margin image-redactor expands each rectangle by.")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "cp requires exactly a source and a destination")
		fs.PrintDefaults()
		return 1
	}
	sourceURI, destURI := fs.Arg(0), fs.Arg(1)

	if debug {
		useBar = false
	}

	if logFile != "" {
		f, err := os.OpenFile(path.Clean(logFile), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open logfile %q for append: %s\n", logFile, err)
			return 1
		}
		defer f.Close()
		logWriter = f
	}
	outLog, debugLog := newLoggers(debug)

	// flocking guards two concurrent invocations from racing a write
	// against the same destination tree (§5 "Archive write mode requires
	// that the destination file did not pre-exist; racing another writer
	// is out of scope"), the same single-instance posture ripfix takes
	// with its own --flock/--ignore-flock pair.
	if !skipFlock {
		fileLock := flock.New(flockPath)
		locked, err := fileLock.TryLock()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error while trying to flock %s: %s\n", flockPath, err)
			return 1
		}
		if !locked {
			fmt.Fprintln(os.Stderr, "another dlpcopy cp is already running against this lock file")
			return 1
		}
		defer fileLock.Unlock()
	}

	mimeOverrideRules, err := parseMimeOverrides(mimeOverrideRaw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var sizeLimit *int64
	if maxSizeLimit > 0 {
		sizeLimit = &maxSizeLimit
	}

	delimiter, err := parseCsvDelimiter(csvDelimiter)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	baseOpts := model.RedacterBaseOptions{
		AllowUnsupportedCopies: allowUnsup,
		CsvHeadersDisable:      csvHeadersOff,
		CsvDelimiter:           delimiter,
	}
	if samplingSize > 0 {
		baseOpts.SamplingSize = &samplingSize
	}
	if limitDlp != "" {
		rl, err := parseRateLimit(limitDlp)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		baseOpts.LimitDlpRequests = &rl
	}

	ctx := context.Background()
	redacters, err := buildRedacters(ctx, redactNames, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	deps := buildDeps(baseOpts, debugLog)

	opts := copy.Options{
		RedacterBaseOptions: baseOpts,
		MaxFilesLimit:       maxFilesLimit,
		Matcher:             matcher.New(filenameFilter, sizeLimit),
		MimeOverride:        matcher.NewMimeOverride(mimeOverrideRules),
		Redacters:           redacters,
		PdfAvailable:        true,
		OcrAvailable:        ocrAvailable(),
		Deps:                deps,
	}

	seq := sequence.New(1)
	var barChan chan racket.Progress
	logMessages := true
	if useBar {
		barChan = make(chan racket.Progress)
		defer close(barChan)
		logMessages = false

		go func() {
			bar := pb.ProgressBarTemplate(`{{ counters . }} {{ bar . }} {{ percent . }}`).Start(0)
			defer bar.Finish()
			for b := range barChan {
				switch b.Type {
				case racket.ProgressUpdate:
					bar.Add64(b.Data.(int64))
				case racket.ProgressEstimate:
					bar.SetTotal(b.Data.(int64))
				}
			}
		}()
		time.Sleep(100 * time.Millisecond)

		if estimate, err := estimateFileCount(ctx, sourceURI, opts.Matcher, maxFilesLimit); err == nil {
			barChan <- racket.PEstimate(estimate)
		}
	}

	workChan := make(chan racket.Work)
	var (
		copyResult copy.Result
		copyErr    error
	)
	job := racket.NewJob(func(id any, w racket.Work, progressChan chan<- racket.Progress) {
		opts.Reporter = &racketReporter{id: id, progressChan: progressChan}
		copyResult, copyErr = copy.Copy(ctx, sourceURI, destURI, opts)
		if copyErr != nil {
			progressChan <- racket.PErrorf("[%v] %v", id, copyErr)
			return
		}
		progressChan <- racket.PMessagef("[%v] done: copied=%d redacted=%d skipped=%d", id, copyResult.Copied, copyResult.Redacted, copyResult.Skipped)
	})

	// §5: single-threaded cooperative, one file at a time — the
	// teacher's worker-pool shape is kept, its concurrency knob pinned
	// to 1 so the progress/logging plumbing is reused without opening
	// up inter-file parallelism.
	progressChan, doneFunc := job.Supervisor(1, workChan)
	defer close(progressChan)

	go racket.ProgressLogger(outLog, logMessages, nil, progressChan, barChan)

	workChan <- racket.NewWork(map[string]any{"id": seq.NextHashID()})
	doneFunc()
	<-job.IsDone()

	if copyErr != nil {
		return 1
	}

	if resultJSON != "" {
		if err := writeResultJSON(resultJSON, copyResult); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	return 0
}

// runLs implements the "ls" subcommand (§6).
func runLs(args []string) int {
	fs := pflag.NewFlagSet("ls", pflag.ContinueOnError)

	var (
		maxSizeLimit   int64
		filenameFilter string
	)
	fs.Int64Var(&maxSizeLimit, "max-size-limit", 0, "Skip files larger than this many bytes (0 = no limit).")
	fs.StringVar(&filenameFilter, "filename-filter", "", "Glob the relative path must match to be listed.")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ls requires exactly a source")
		fs.PrintDefaults()
		return 1
	}

	var sizeLimit *int64
	if maxSizeLimit > 0 {
		sizeLimit = &maxSizeLimit
	}
	m := matcher.New(filenameFilter, sizeLimit)

	result, err := copy.List(context.Background(), fs.Arg(0), m, 0, fsconn.NopReporter{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	copy.Print(os.Stdout, result)
	return 0
}

// buildDeps wires the PDF/OCR converters the stream redacter needs
// (§4.5), auto-detecting tesseract's availability on PATH the same way
// ripfix's init() checks for pdftoppm/tesseract before doing any work.
func buildDeps(opts model.RedacterBaseOptions, debugLog *log.Logger) stream.Deps {
	deps := stream.Deps{PdfConverter: convert.NewPdfImageConverter()}
	if ocrAvailable() {
		deps.Ocr = convert.NewTesseractOcr("")
	} else {
		debugLog.Printf("tesseract not found on PATH, OCR-dependent redaction plans are unavailable")
	}
	if opts.LimitDlpRequests != nil {
		deps.Throttler = throttle.New(*opts.LimitDlpRequests)
	}
	return deps
}

func ocrAvailable() bool {
	_, err := exec.LookPath("tesseract")
	return err == nil
}

func writeResultJSON(path string, result copy.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// estimateFileCount runs a matcher-filtered listing pass purely to size
// the progress bar before work starts, the same two-pass shape
// ripfix's buildList takes (count first, then dole out work).
func estimateFileCount(ctx context.Context, sourceURI string, m matcher.Matcher, maxFiles int) (int64, error) {
	result, err := copy.List(ctx, sourceURI, m, maxFiles, fsconn.NopReporter{})
	if err != nil {
		return 0, err
	}
	return int64(len(result.Entries)), nil
}

