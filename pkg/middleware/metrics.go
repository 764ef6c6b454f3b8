package middleware

import (
	"strconv"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/common"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type metricsMiddleware struct {
	logger *logrus.Logger
}

// NewMetricsMiddleware tags each request with an id and records the request
// counter and latency histogram once the handler chain returns.
func NewMetricsMiddleware(logger *logrus.Logger) Middleware {
	return &metricsMiddleware{logger: logger}
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(common.LatencyContextKey, start)

		requestID := c.Get(common.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals(common.RequestIDContextKey, requestID)
		c.Set(common.RequestIDHeader, requestID)

		err := c.Next()
		if err != nil {
			// Let fiber's error handler write the status before it is recorded.
			if handlerErr := c.App().Config().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		method := c.Method()
		status := c.Response().StatusCode()
		elapsed := time.Since(start)

		prometheus.HTTPRequestTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
		if prometheus.Config.EnableLatency {
			prometheus.HTTPRequestLatency.WithLabelValues(method).Observe(float64(elapsed.Milliseconds()))
		}
		m.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     method,
			"path":       c.Path(),
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
		}).Debug("request served")
		return err
	}
}
