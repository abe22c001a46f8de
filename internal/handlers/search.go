package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/avolkov/online-store/internal/logging"
	"github.com/avolkov/online-store/internal/service/search"
	"github.com/avolkov/online-store/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.products")

	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, errBody("validation", "query required"))
	}

	from, size := util.Calculate(intParam(c, "page"), intParam(c, "size"))

	total, products, err := search.Search(ctx, h.ES, h.Index, q, from, size)
	if err != nil {
		l.Error("search failed", "query", q, "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
