package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryInt читает целочисленный query-параметр с дефолтом.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// queryInt64 читает int64 query-параметр с дефолтом.
func queryInt64(c *gin.Context, name string, def int64) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return def
	}
	return v
}
