package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rxsavings/engine"
	"rxsavings/report"
	"rxsavings/source"
)

// queryRequest is the body of every POST endpoint. Datasets must be listed
// explicitly; an empty list selects nothing.
type queryRequest struct {
	Datasets []string              `json:"datasets"`
	Criteria engine.FilterCriteria `json:"criteria"`

	// top-drugs only
	Limit  int    `json:"limit"`
	Metric string `json:"metric"`
	// monthly-spend only; nil uses the configured fee
	FeePerRx *int `json:"fee_per_rx"`
}

type api struct {
	eng     *engine.Engine
	fee     int
	logger  *zap.Logger
	metrics *metrics
}

const defaultTopDrugs = 10

// newRouter wires the JSON API, health and metrics endpoints.
func newRouter(eng *engine.Engine, fee int, logger *zap.Logger, m *metrics) *gin.Engine {
	a := &api{eng: eng, fee: fee, logger: logger, metrics: m}

	r := gin.New()
	r.Use(requestID(), requestLogger(logger, m), recovery(logger))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(m.handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/datasets", a.datasets)
	v1.POST("/kpis", a.kpis)
	v1.POST("/options", a.options)
	v1.POST("/recipes/:name", a.recipe)
	return r
}

func (a *api) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "datasets": len(a.eng.Datasets())})
}

func (a *api) datasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": a.eng.Datasets()})
}

func (a *api) kpis(c *gin.Context) {
	req, v, ok := a.bindView(c)
	if !ok {
		return
	}
	k := engine.Summarize(v)
	a.logger.Debug("kpis",
		zap.String(requestIDKey, c.GetString(requestIDKey)),
		zap.Strings("datasets", req.Datasets),
		zap.Int64("rx_ct", k.RxCt),
	)
	c.JSON(http.StatusOK, gin.H{"kpis": k, "cards": report.KPICards(k)})
}

// options lists the values for the dependent drop-downs. Each list ignores
// its own selection and honours the other one.
func (a *api) options(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}

	classCriteria := req.Criteria
	classCriteria.DrugClasses = nil
	classView, err := a.eng.BuildFilteredView(req.Datasets, classCriteria)
	if err != nil {
		abortWithError(c, err)
		return
	}

	drugCriteria := req.Criteria
	drugCriteria.GenericNames = nil
	drugView, err := a.eng.BuildFilteredView(req.Datasets, drugCriteria)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"drug_classes":  engine.DrugClassOptions(classView),
		"generic_names": engine.GenericNameOptions(drugView),
	})
}

func (a *api) recipe(c *gin.Context) {
	name := c.Param("name")
	req, v, ok := a.bindView(c)
	if !ok {
		return
	}

	var (
		rows any
		n    int
		err  error
	)
	switch name {
	case "class-share":
		out := a.eng.ClassSavingsShare(v)
		rows, n = out, len(out)
	case "drug-scatter":
		out := a.eng.DrugScatter(v)
		rows, n = out, len(out)
	case "charge-per-rx":
		out := a.eng.ChargePerRx(v)
		rows, n = out, len(out)
	case "monthly-spend":
		fee := a.fee
		if req.FeePerRx != nil {
			fee = *req.FeePerRx
		}
		var out []engine.MonthSpend
		out, err = a.eng.MonthlySpend(v, fee)
		rows, n = out, len(out)
	case "top-drugs":
		limit := req.Limit
		if limit == 0 {
			limit = defaultTopDrugs
		}
		var metric engine.Metric
		if metric, err = engine.ParseMetric(req.Metric); err == nil {
			var out []engine.DrugSavings
			out, err = a.eng.TopDrugs(v, limit, metric)
			rows, n = out, len(out)
		}
	case "class-breakdown":
		out := a.eng.ClassBreakdown(v)
		rows, n = out, len(out)
	default:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown recipe %q", name)})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	a.metrics.rows.WithLabelValues(name).Observe(float64(n))
	c.JSON(http.StatusOK, gin.H{"recipe": name, "rows": rows})
}

// bindView decodes the request and builds its view, writing the error
// response itself when either step fails.
func (a *api) bindView(c *gin.Context) (queryRequest, engine.View, bool) {
	var req queryRequest
	if !bind(c, &req) {
		return req, engine.View{}, false
	}
	v, err := a.eng.BuildFilteredView(req.Datasets, req.Criteria)
	if err != nil {
		abortWithError(c, err)
		return req, engine.View{}, false
	}
	return req, v, true
}

// bind decodes a JSON body. An empty body is the zero request.
func bind(c *gin.Context, req *queryRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, source.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvertedDateRange),
		errors.Is(err, engine.ErrUnknownTriState),
		errors.Is(err, engine.ErrNegativeFee),
		errors.Is(err, engine.ErrInvalidMetric),
		errors.Is(err, engine.ErrInvalidLimit):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
