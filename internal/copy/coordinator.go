// Package copy implements the copy coordinator (C8, §4.8): the
// end-to-end transfer loop that ties the file-system backends, matcher,
// and stream redacter together, and the read-only ls counterpart
// (SPEC_FULL's "ls subcommand" supplement).
package copy

import (
	"bytes"
	"context"
	"io"

	"github.com/redacter/dlpcopy/internal/fsconn"
	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/redact"
	"github.com/redacter/dlpcopy/internal/rerrors"
	"github.com/redacter/dlpcopy/internal/stream"
)

// Options bundles everything a Copy invocation needs beyond the two
// URIs: matching, MIME overrides, the configured redacters (in
// invocation order) and their conversion capabilities, and the
// downward-facing reporter (§9 "reporting is done by passing a
// reporter capability downward").
type Options struct {
	model.RedacterBaseOptions

	MaxFilesLimit int
	Matcher       matcher.Matcher
	MimeOverride  matcher.MimeOverride

	Redacters    []redact.Redacter
	PdfAvailable bool
	OcrAvailable bool
	Deps         stream.Deps

	Reporter fsconn.Reporter
}

// Result is the outcome of one Copy invocation (§4.8 "{ copied,
// redacted, skipped }").
type Result struct {
	Copied   int `json:"copied"`
	Redacted int `json:"redacted"`
	Skipped  int `json:"skipped"`
}

// Copy implements §4.8's procedure end to end.
func Copy(ctx context.Context, sourceURI, destURI string, opts Options) (Result, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = fsconn.NopReporter{}
		opts.Reporter = reporter
	}

	source, err := fsconn.Open(ctx, sourceURI, false, reporter)
	if err != nil {
		return Result{}, err
	}
	dest, err := fsconn.Open(ctx, destURI, true, reporter)
	if err != nil {
		source.Close(ctx)
		return Result{}, err
	}

	// Close destination before source (§4.8 step 6: "archive writers
	// must finalize before source temp cleanup").
	defer source.Close(ctx)
	defer dest.Close(ctx)

	hasMultiple, err := source.HasMultipleFiles(ctx)
	if err != nil {
		return Result{}, err
	}
	acceptsMultiple, err := dest.AcceptsMultipleFiles(ctx)
	if err != nil {
		return Result{}, err
	}
	if hasMultiple && !acceptsMultiple {
		return Result{}, rerrors.New(rerrors.KindDestinationNoMultipleFiles, "source %s has multiple files but destination %s accepts only one", sourceURI, destURI)
	}

	var result Result

	if !hasMultiple {
		if err := processOne(ctx, source, dest, nil, opts, &result); err != nil {
			return Result{}, err
		}
		return result, nil
	}

	listing, err := source.ListFiles(ctx, &opts.Matcher, opts.MaxFilesLimit)
	if err != nil {
		return Result{}, err
	}
	result.Skipped += listing.Skipped

	for i := range listing.Files {
		ref := listing.Files[i]
		if err := processOne(ctx, source, dest, &ref, opts, &result); err != nil {
			return Result{}, err
		}
	}
	return result, nil
}

// processOne implements §4.8 step 3-4 for a single file, mutating
// result in place. Fatal errors are returned to the caller; everything
// else is absorbed into result.Skipped with a reporter message.
func processOne(ctx context.Context, source, dest fsconn.Connection, ref *model.FileSystemRef, opts Options, result *Result) error {
	resolved, body, err := source.Download(ctx, ref)
	if err != nil {
		if rerrors.Fatal(err) {
			return err
		}
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
		return nil
	}

	resolved = opts.MimeOverride.Apply(resolved)

	if res := opts.Matcher.Matches(resolved); res != matcher.Matched {
		body.Close()
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": filtered out by size or name")
		return nil
	}

	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
		return nil
	}

	if len(opts.Redacters) == 0 {
		if err := dest.Upload(ctx, bytes.NewReader(data), &resolved); err != nil {
			if rerrors.Fatal(err) {
				return err
			}
			result.Skipped++
			opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
			return nil
		}
		result.Copied++
		opts.Reporter.Report("copied " + string(resolved.RelativePath))
		return nil
	}

	plan, err := stream.BuildPlan(ctx, resolved, opts.Redacters, opts.PdfAvailable, opts.OcrAvailable)
	if err != nil {
		if rerrors.Fatal(err) {
			return err
		}
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
		return nil
	}

	if len(plan.Supported) == 0 {
		if !opts.AllowUnsupportedCopies {
			result.Skipped++
			opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": no supported redacter")
			return nil
		}
		if err := dest.Upload(ctx, bytes.NewReader(data), &resolved); err != nil {
			if rerrors.Fatal(err) {
				return err
			}
			result.Skipped++
			opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
			return nil
		}
		opts.Reporter.Report("copied " + string(resolved.RelativePath) + " unredacted (no supported redacter)")
		result.Copied++
		return nil
	}

	item, err := stream.Materialize(resolved, data, opts.RedacterBaseOptions, plan.TreatTableAsText)
	if err != nil {
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
		return nil
	}

	streamResult, err := stream.Execute(ctx, plan, item, opts.RedacterBaseOptions, opts.Deps)
	if err != nil {
		if rerrors.Fatal(err) {
			return err
		}
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
		return nil
	}

	if streamResult.NumberOfRedactions == 0 && !opts.AllowUnsupportedCopies {
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": no redaction applied")
		return nil
	}

	if err := dest.Upload(ctx, bytes.NewReader(streamResult.Stream), &resolved); err != nil {
		if rerrors.Fatal(err) {
			return err
		}
		result.Skipped++
		opts.Reporter.Report("skipped " + string(resolved.RelativePath) + ": " + err.Error())
		return nil
	}
	result.Copied++
	if streamResult.NumberOfRedactions > 0 {
		result.Redacted++
	}
	opts.Reporter.Report("copied " + string(resolved.RelativePath))
	return nil
}
