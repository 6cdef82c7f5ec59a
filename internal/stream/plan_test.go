package stream

import (
	"context"
	"testing"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/redact"
)

type fakeRedacter struct {
	supportFor map[string]model.RedactSupport
}

func (f *fakeRedacter) RedacterType() redact.Type { return redact.TypeSimpleImage }

func (f *fakeRedacter) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	return f.supportFor[ref.MediaType], nil
}

func (f *fakeRedacter) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	return item, nil
}

func TestBuildPlanNaturalSupportShortCircuits(t *testing.T) {
	r := &fakeRedacter{supportFor: map[string]model.RedactSupport{"text/plain": model.Supported}}
	plan, err := BuildPlan(context.Background(), model.FileSystemRef{MediaType: "text/plain"}, []redact.Redacter{r}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Supported) != 1 || plan.ApplyOcr || plan.ApplyPdfToImages || plan.TreatTableAsText {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestBuildPlanCsvReprobesAsText(t *testing.T) {
	r := &fakeRedacter{supportFor: map[string]model.RedactSupport{"text/plain": model.Supported}}
	plan, err := BuildPlan(context.Background(), model.FileSystemRef{MediaType: "text/csv"}, []redact.Redacter{r}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.TreatTableAsText || len(plan.Supported) != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestBuildPlanPdfPrefersImageOverOcr(t *testing.T) {
	r := &fakeRedacter{supportFor: map[string]model.RedactSupport{"image/png": model.Supported, "text/plain": model.Supported}}
	plan, err := BuildPlan(context.Background(), model.FileSystemRef{MediaType: "application/pdf"}, []redact.Redacter{r}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.ApplyPdfToImages || plan.ApplyOcr {
		t.Fatalf("expected image-only pdf plan, got %+v", plan)
	}
}

func TestBuildPlanPdfFallsBackToOcr(t *testing.T) {
	r := &fakeRedacter{supportFor: map[string]model.RedactSupport{"text/plain": model.Supported}}
	plan, err := BuildPlan(context.Background(), model.FileSystemRef{MediaType: "application/pdf"}, []redact.Redacter{r}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.ApplyPdfToImages || !plan.ApplyOcr {
		t.Fatalf("expected pdf+ocr plan, got %+v", plan)
	}
}

func TestBuildPlanNoSupportYieldsEmptyPlan(t *testing.T) {
	r := &fakeRedacter{supportFor: map[string]model.RedactSupport{}}
	plan, err := BuildPlan(context.Background(), model.FileSystemRef{MediaType: "application/octet-stream"}, []redact.Redacter{r}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Supported) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}
