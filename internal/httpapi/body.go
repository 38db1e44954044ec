package httpapi

import (
	"encoding/json"
	"io"

	"github.com/labstack/echo/v4"

	"horse.fit/folio/internal/manifest"
)

func readBodyLimited(c echo.Context, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request().Body, limit))
}

func validateManifest(body []byte) (*manifest.Manifest, error) {
	return manifest.Validate(json.RawMessage(body))
}
