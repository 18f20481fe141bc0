package handlers

import (
	"encoding/binary"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/gin-gonic/gin"
)

// Task validators are weak: they change whenever a task is created,
// updated or deleted, without hashing the rendered body.

func taskETag(t task.Task) string {
	return `W/"task-` + strconv.FormatInt(t.ID, 10) + "-" + strconv.FormatInt(t.UpdatedAt.UnixNano(), 36) + `"`
}

// taskListETag folds every (id, updatedAt) pair into one digest. variant
// keeps the plain and the joined listing from sharing a validator.
func taskListETag(variant string, items []task.Task) string {
	h := fnv.New64a()
	var buf [16]byte

	for _, t := range items {
		binary.BigEndian.PutUint64(buf[:8], uint64(t.ID))
		binary.BigEndian.PutUint64(buf[8:], uint64(t.UpdatedAt.UnixNano()))
		h.Write(buf[:])
	}

	return `W/"` + variant + "-" + strconv.Itoa(len(items)) + "-" + strconv.FormatUint(h.Sum64(), 16) + `"`
}

// respondWithETag answers 304 when the client already holds etag.
func respondWithETag(ctx *gin.Context, etag string, payload interface{}) {
	ctx.Header("ETag", etag)

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(http.StatusOK, payload)
}

func ifNoneMatchMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	// If-None-Match uses weak comparison
	want := opaqueTag(etag)
	for _, candidate := range strings.Split(header, ",") {
		if opaqueTag(candidate) == want {
			return true
		}
	}
	return false
}

func opaqueTag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
