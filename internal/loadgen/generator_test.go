package loadgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

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

func TestGenerateRequests(t *testing.T) {
	Convey("Given the synthetic property generator", t, func() {
		ctx := context.Background()

		Convey("When generating a batch of properties", func() {
			reqs := generateRequests(ctx, 200, 42)

			Convey("Then every property passes request validation", func() {
				So(len(reqs), ShouldEqual, 200)
				for i := range reqs {
					So(reqs[i].Validate(), ShouldBeNil)
				}
			})

			Convey("And financials are internally consistent", func() {
				for i := range reqs {
					r := &reqs[i]
					So(r.NetOperatingIncome, ShouldAlmostEqual, r.AnnualRevenue-r.AnnualExpenses, 0.01)
					So(r.CapRate, ShouldBeBetweenOrEqual, 0.04, 0.10)
				}
			})

			Convey("And identical seeds reproduce the same portfolio", func() {
				again := generateRequests(ctx, 200, 42)
				So(again[0].SquareFeet, ShouldEqual, reqs[0].SquareFeet)
				So(again[199].City, ShouldEqual, reqs[199].City)
			})
		})
	})
}

func TestResultConsistent(t *testing.T) {
	Convey("Given the response consistency check", t, func() {
		good := model.EnsembleResult{
			PredictedValue: 5_000_000,
			Interval: model.ConfidenceInterval{
				Lower:                 4_875_000,
				Upper:                 5_125_000,
				UncertaintyPercentage: 2.5,
			},
			ModelAgreement: 97.5,
		}

		Convey("A well formed result passes", func() {
			So(resultConsistent(&good), ShouldBeTrue)
		})

		Convey("An interval that misses the point estimate fails", func() {
			bad := good
			bad.Interval.Lower = 5_100_000
			So(resultConsistent(&bad), ShouldBeFalse)
		})

		Convey("An uncertainty outside the clamp fails", func() {
			bad := good
			bad.Interval.UncertaintyPercentage = 5.0
			So(resultConsistent(&bad), ShouldBeFalse)
		})
	})
}

func TestSubmitAgainstStubServer(t *testing.T) {
	Convey("Given a stub valuation server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case healthPath:
				w.WriteHeader(http.StatusOK)
			case predictPath:
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"predicted_value": 5000000,
					"confidence_interval": {"lower": 4875000, "upper": 5125000, "uncertainty_percentage": 2.5},
					"model_agreement": 97.5,
					"model_version": "v1.1.0"
				}`))
			case batchPath:
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"batch_id": "batch_x", "total_properties": 3, "successful_valuations": 3, "failed_valuations": 0}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		cfg := &Config{
			BaseURL:     srv.URL,
			NumRequests: 20,
			BatchSize:   3,
			Workers:     4,
			Timeout:     5 * time.Second,
		}

		Convey("When running the full pass", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every submission succeeds", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 20)
				So(stats.Successful, ShouldEqual, 20)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.BatchSubmitted, ShouldEqual, 3)
				So(stats.BatchSuccessful, ShouldEqual, 3)
			})
		})
	})
}
