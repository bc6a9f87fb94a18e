package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	service "github.com/brickfield/appraisal/internal/app"
	"github.com/brickfield/appraisal/internal/domain/features"
	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// constantModel ignores its inputs and always estimates the intercept.
// Thirteen zero coefficients match the default feature vector length.
const constantModel = `{
	"name": "constant",
	"coefficients": [0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0],
	"intercept": 5000000.0
}`

func writeModels(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range []string{"gradient_model.json", "boosted_model.json", "neural_model.json"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(constantModel), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func startedService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func validRequest() model.ValuationRequest {
	return model.ValuationRequest{
		PropertyID:         "prop-001",
		PropertyType:       "office",
		City:               "San Francisco",
		SquareFeet:         15000,
		OccupancyRate:      0.92,
		AnnualRevenue:      525000,
		AnnualExpenses:     157500,
		NetOperatingIncome: 367500,
		CapRate:            0.06,
	}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a valuation service", t, func() {
		svc := service.New(service.WithModelsDir(writeModels(t)))

		Convey("When started", func() {
			err := svc.Start(context.Background())
			defer svc.Stop()

			Convey("Then it becomes ready", func() {
				So(err, ShouldBeNil)
				So(svc.Ready(), ShouldBeTrue)
				So(svc.Degraded(), ShouldBeFalse)
				So(svc.Fanout(), ShouldNotBeNil)
			})

			Convey("And a second start is a no-op", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
			})
		})

		Convey("When stopped twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then it is no longer ready", func() {
				So(svc.Ready(), ShouldBeFalse)
			})
		})
	})
}

func TestServicePredict(t *testing.T) {
	Convey("Given a started service with healthy models", t, func() {
		svc := startedService(t, service.WithModelsDir(writeModels(t)))
		ctx := context.Background()

		Convey("When predicting a valid request", func() {
			req := validRequest()
			result, err := svc.Predict(ctx, &req)

			Convey("Then it returns a complete valuation", func() {
				So(err, ShouldBeNil)
				So(result.PredictedValue, ShouldEqual, 5_000_000)
				So(result.ModelVersion, ShouldEqual, "v1.1.0")
				So(result.ModelsUsed, ShouldEqual, 3)
				So(result.Cached, ShouldBeFalse)
				So(result.PricePerSqft, ShouldAlmostEqual, 5_000_000.0/15000.0, 0.01)
				So(result.Interval.Lower, ShouldBeLessThan, result.PredictedValue)
				So(result.Interval.Upper, ShouldBeGreaterThan, result.PredictedValue)
				So(result.ValuationDate.IsZero(), ShouldBeFalse)
				So(result.ProcessingTimeMs, ShouldBeGreaterThanOrEqualTo, 0)
			})

			Convey("And an identical request is served from cache", func() {
				again, err := svc.Predict(ctx, &req)

				So(err, ShouldBeNil)
				So(again.Cached, ShouldBeTrue)
				So(again.PredictedValue, ShouldEqual, result.PredictedValue)
				So(again.Interval.UncertaintyPercentage, ShouldEqual, result.Interval.UncertaintyPercentage)
			})
		})

		Convey("When predicting an invalid request", func() {
			req := validRequest()
			req.SquareFeet = 10

			_, err := svc.Predict(ctx, &req)

			Convey("Then it rejects the input", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "square_feet")
			})
		})
	})

	Convey("Given a started service with no model artifacts", t, func() {
		svc := startedService(t, service.WithModelsDir(t.TempDir()))

		Convey("When predicting", func() {
			req := validRequest()
			result, err := svc.Predict(context.Background(), &req)

			Convey("Then it degrades to the heuristic estimate", func() {
				So(err, ShouldBeNil)
				So(svc.Degraded(), ShouldBeTrue)
				So(result.ModelVersion, ShouldEqual, "fallback")
				So(result.ModelsUsed, ShouldEqual, 0)
				So(result.Interval.UncertaintyPercentage, ShouldEqual, 2.0)
				// NOI / cap rate with +-5% jitter around 6,125,000.
				So(result.PredictedValue, ShouldBeBetween, 5_818_750, 6_431_250)
			})
		})
	})
}

func TestServiceFeatureOrderFromMetadata(t *testing.T) {
	Convey("Given models shipped with a reordered metadata feature list", t, func() {
		dir := t.TempDir()

		// The lone coefficient picks out whatever feature comes first,
		// so the estimate reveals the vector order the models received.
		firstFeatureModel := `{
			"name": "first_feature",
			"coefficients": [1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0],
			"intercept": 0.0
		}`
		if err := os.WriteFile(filepath.Join(dir, "reorder_model.json"), []byte(firstFeatureModel), 0o600); err != nil {
			t.Fatal(err)
		}

		metadata := `{"features": [
			"net_operating_income", "square_feet", "building_age", "num_floors",
			"occupancy_rate", "walk_score", "transit_score", "crime_rate",
			"school_rating", "distance_to_downtown", "annual_revenue",
			"expenses", "cap_rate"
		]}`
		if err := os.WriteFile(filepath.Join(dir, "model_metadata.json"), []byte(metadata), 0o600); err != nil {
			t.Fatal(err)
		}

		svc := startedService(t,
			service.WithModelsDir(dir),
			service.WithModelWeights(map[string]float64{"reorder_model.json": 1.0}),
		)

		Convey("When predicting", func() {
			req := validRequest()
			result, err := svc.Predict(context.Background(), &req)

			Convey("Then vectors follow the metadata order, not the default", func() {
				So(err, ShouldBeNil)
				So(result.ModelVersion, ShouldEqual, "v1.1.0")
				// Net operating income leads the metadata list; the default
				// order would have produced square_feet (15000) instead.
				So(result.PredictedValue, ShouldEqual, 367500)
			})
		})
	})

	Convey("Given metadata naming a non-numeric attribute as a feature", t, func() {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "model_metadata.json"), []byte(`{"features": ["state"]}`), 0o600); err != nil {
			t.Fatal(err)
		}
		svc := startedService(t, service.WithModelsDir(dir))

		Convey("When predicting a request carrying that attribute", func() {
			req := validRequest()
			req.State = "CA"

			_, err := svc.Predict(context.Background(), &req)

			Convey("Then the coercion failure surfaces instead of degrading", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, features.ErrInvalidFeatureValue), ShouldBeTrue)
			})
		})
	})
}

func TestServicePredictBatch(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(t, service.WithModelsDir(writeModels(t)))
		ctx := context.Background()

		Convey("When valuing a batch with one invalid property", func() {
			good := validRequest()
			bad := validRequest()
			bad.PropertyID = "prop-002"
			bad.OccupancyRate = 1.5

			batch, err := svc.PredictBatch(ctx, []model.ValuationRequest{good, bad})

			Convey("Then the batch succeeds with the failure isolated", func() {
				So(err, ShouldBeNil)
				So(batch.BatchID, ShouldStartWith, "batch_")
				So(batch.TotalSubmitted, ShouldEqual, 2)
				So(batch.Successful, ShouldEqual, 1)
				So(batch.Failed, ShouldEqual, 1)
				So(batch.Successful+batch.Failed, ShouldEqual, batch.TotalSubmitted)
				So(len(batch.Items), ShouldEqual, 2)
				So(batch.Items[0].Status, ShouldEqual, model.BatchItemSuccess)
				So(batch.Items[0].Valuation, ShouldNotBeNil)
				So(batch.Items[1].Status, ShouldEqual, model.BatchItemError)
				So(batch.Items[1].Error, ShouldContainSubstring, "occupancy_rate")
				So(batch.TotalValue, ShouldEqual, batch.Items[0].Valuation.PredictedValue)
				So(batch.AverageValue, ShouldEqual, batch.TotalValue)
			})
		})

		Convey("When every property fails", func() {
			bad := validRequest()
			bad.PropertyType = ""

			batch, err := svc.PredictBatch(ctx, []model.ValuationRequest{bad, bad})

			Convey("Then totals stay at zero without dividing by zero", func() {
				So(err, ShouldBeNil)
				So(batch.Successful, ShouldEqual, 0)
				So(batch.Failed, ShouldEqual, 2)
				So(batch.TotalValue, ShouldEqual, 0)
				So(batch.AverageValue, ShouldEqual, 0)
			})
		})

		Convey("When the batch is empty", func() {
			batch, err := svc.PredictBatch(ctx, nil)

			Convey("Then counters hold at zero", func() {
				So(err, ShouldBeNil)
				So(batch.TotalSubmitted, ShouldEqual, 0)
				So(batch.Successful+batch.Failed, ShouldEqual, batch.TotalSubmitted)
				So(batch.AverageValue, ShouldEqual, 0)
			})
		})
	})
}

func TestServiceStats(t *testing.T) {
	Convey("Given a started service with some traffic", t, func() {
		svc := startedService(t, service.WithModelsDir(writeModels(t)))
		ctx := context.Background()

		req := validRequest()
		_, err := svc.Predict(ctx, &req)
		So(err, ShouldBeNil)

		Convey("When reading stats", func() {
			stats := svc.GetStats(ctx)

			Convey("Then counters reflect the traffic", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["total_valuations"], ShouldEqual, int64(1))
				So(stats["fallback_valuations"], ShouldEqual, int64(0))
				So(stats["cache_hits"], ShouldEqual, int64(0))
				So(stats["predictors_loaded"], ShouldEqual, 3)
				So(stats["registry_degraded"], ShouldEqual, false)
				So(stats["model_version"], ShouldEqual, "v1.1.0")
				So(stats, ShouldContainKey, "uptime_seconds")
				So(stats, ShouldContainKey, "fanout")
			})
		})
	})
}
