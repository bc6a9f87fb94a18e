package predictor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brickfield/appraisal/internal/domain/predictor"
	"github.com/brickfield/appraisal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeArtifact(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const simpleModel = `{
	"name": "gradient",
	"coefficients": [2.0, 3.0],
	"intercept": 100.0
}`

const scaledModel = `{
	"name": "neural",
	"coefficients": [10.0, 10.0],
	"intercept": 0.0,
	"scaler": {"mean": [1.0, 1.0], "std": [2.0, 2.0]}
}`

func TestRegistryLoad(t *testing.T) {
	Convey("Given a models directory with valid artifacts", t, func() {
		dir := t.TempDir()
		writeArtifact(t, dir, "gradient_model.json", simpleModel)
		writeArtifact(t, dir, "boosted_model.json", simpleModel)

		reg := predictor.NewRegistry(
			predictor.WithModelsDir(dir),
			predictor.WithArtifacts([]predictor.ArtifactSpec{
				{File: "gradient_model.json", Weight: 0.5},
				{File: "boosted_model.json", Weight: 0.5},
			}),
		)

		Convey("When loading", func() {
			reg.Load(context.Background())

			Convey("Then both predictors are available", func() {
				So(reg.Ready(), ShouldBeTrue)
				So(reg.Degraded(), ShouldBeFalse)
				So(reg.Count(), ShouldEqual, 2)
			})

			Convey("And PredictAll returns one output per predictor", func() {
				outputs := reg.PredictAll(context.Background(), []float64{1, 2})
				So(len(outputs), ShouldEqual, 2)
				// 100 + 2*1 + 3*2 = 108
				So(outputs[0].Estimate, ShouldEqual, 108.0)
				So(outputs[0].Weight, ShouldEqual, 0.5)
			})
		})
	})

	Convey("Given one malformed artifact among valid ones", t, func() {
		dir := t.TempDir()
		writeArtifact(t, dir, "gradient_model.json", simpleModel)
		writeArtifact(t, dir, "boosted_model.json", `{"name": "broken"}`)

		reg := predictor.NewRegistry(
			predictor.WithModelsDir(dir),
			predictor.WithArtifacts([]predictor.ArtifactSpec{
				{File: "gradient_model.json", Weight: 0.5},
				{File: "boosted_model.json", Weight: 0.5},
				{File: "missing_model.json", Weight: 0.2},
			}),
		)

		Convey("When loading", func() {
			reg.Load(context.Background())

			Convey("Then the failure does not prevent the others from loading", func() {
				So(reg.Count(), ShouldEqual, 1)
				So(reg.Degraded(), ShouldBeFalse)
				So(reg.Ready(), ShouldBeTrue)
			})
		})
	})

	Convey("Given an empty models directory", t, func() {
		reg := predictor.NewRegistry(predictor.WithModelsDir(t.TempDir()))

		Convey("When loading", func() {
			reg.Load(context.Background())

			Convey("Then the registry is ready but degraded", func() {
				So(reg.Ready(), ShouldBeTrue)
				So(reg.Degraded(), ShouldBeTrue)
				So(reg.Count(), ShouldEqual, 0)
				So(len(reg.PredictAll(context.Background(), []float64{1})), ShouldEqual, 0)
			})
		})
	})

	Convey("Given metadata shipping a custom feature order", t, func() {
		dir := t.TempDir()
		writeArtifact(t, dir, "model_metadata.json", `{"features": ["cap_rate", "square_feet"]}`)
		reg := predictor.NewRegistry(predictor.WithModelsDir(dir))

		Convey("When loading", func() {
			reg.Load(context.Background())

			Convey("Then the registry exposes the metadata order", func() {
				So(reg.Features(), ShouldResemble, []string{"cap_rate", "square_feet"})
			})
		})
	})
}

func TestScaledPredictor(t *testing.T) {
	Convey("Given a predictor with a private standardization transform", t, func() {
		dir := t.TempDir()
		writeArtifact(t, dir, "neural_model.json", scaledModel)

		reg := predictor.NewRegistry(
			predictor.WithModelsDir(dir),
			predictor.WithArtifacts([]predictor.ArtifactSpec{
				{File: "neural_model.json", Weight: 0.2},
			}),
		)

		Convey("When predicting", func() {
			outputs := reg.PredictAll(context.Background(), []float64{3, 5})

			Convey("Then the transform applies only to its own input", func() {
				So(len(outputs), ShouldEqual, 1)
				// standardized: (3-1)/2=1, (5-1)/2=2 -> 10*1 + 10*2 = 30
				So(outputs[0].Estimate, ShouldEqual, 30.0)
			})
		})
	})
}

func TestFallback(t *testing.T) {
	Convey("Given the income-capitalization fallback", t, func() {
		fb := predictor.NewFallback()

		Convey("When estimating with a valid cap rate", func() {
			base := 367500.0 / 0.06
			est := fb.Estimate(367500, 0.06)

			Convey("Then the estimate stays within the ±5% band", func() {
				So(est, ShouldBeGreaterThanOrEqualTo, base*0.95)
				So(est, ShouldBeLessThanOrEqualTo, base*1.05)
			})
		})

		Convey("When the cap rate is non-positive", func() {
			est := fb.Estimate(300000, 0)

			Convey("Then a guard rate keeps the estimate finite and positive", func() {
				So(est, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When estimating repeatedly", func() {
			a := fb.Estimate(367500, 0.06)
			b := fb.Estimate(367500, 0.06)

			Convey("Then fresh randomness applies per call", func() {
				// Equality is possible but vanishingly unlikely.
				So(a, ShouldNotEqual, b)
			})
		})
	})
}
