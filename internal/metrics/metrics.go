package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/event-booking/internal/apperr"
)

var (
	reservationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "reservation_transitions_total",
			Help:      "Reservation workflow operations by outcome",
		},
		[]string{"operation", "result"},
	)

	seatsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "seats_total",
			Help:      "Seats taken from or returned to events",
		},
		[]string{"direction"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "notifications_total",
			Help:      "Notifications published by the API and handled by the worker",
		},
		[]string{"stage", "type", "result"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// TrackTransition records one workflow operation.  result is ResultOK or the
// name of the error kind that rejected it.
func TrackTransition(operation, result string) {
	reservationTransitions.WithLabelValues(operation, result).Inc()
}

func SeatsTaken(n int)    { seatsMoved.WithLabelValues("taken").Add(float64(n)) }
func SeatsReturned(n int) { seatsMoved.WithLabelValues("returned").Add(float64(n)) }

// TrackNotification counts a notification at stage "publish" or "deliver".
func TrackNotification(stage, kind, result string) {
	notifications.WithLabelValues(stage, kind, result).Inc()
}

// Middleware observes request latency labelled by route template, so ids in
// paths do not explode the label set.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				// The error handler runs after us and writes the real status.
				status = apperr.HTTPStatus(err)
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			httpDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
