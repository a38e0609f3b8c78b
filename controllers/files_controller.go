package controllers

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

// FilesController streams stored objects back to authenticated clients so
// the object store never has to be exposed directly.
type FilesController struct {
	Blobs store.BlobStore
}

func NewFilesController(blobs store.BlobStore) *FilesController {
	return &FilesController{Blobs: blobs}
}

func (fc *FilesController) Get(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil || key == "" {
		return utils.NotFound(c, "File not found")
	}

	blob, err := fc.Blobs.Get(c.Context(), key)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching file")
	}

	if blob.ContentType != "" {
		c.Set(fiber.HeaderContentType, blob.ContentType)
	}
	if blob.Size > 0 {
		c.Set(fiber.HeaderContentLength, strconv.FormatInt(blob.Size, 10))
	}
	return c.SendStream(blob.Content)
}
