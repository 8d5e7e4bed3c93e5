package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/threadkart/threadkart-backend-go/models"
	"github.com/threadkart/threadkart-backend-go/storage"
)

const maxProductImages = 5

// ProductStore is the slice of the document store the product endpoints use.
type ProductStore interface {
	FindAll(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProductHandler serves the catalog endpoints.
type ProductHandler struct {
	store  ProductStore
	images storage.ImageStore
}

func NewProductHandler(store ProductStore, images storage.ImageStore) *ProductHandler {
	return &ProductHandler{store: store, images: images}
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	products, err := h.store.FindAll(c.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("failed to list products")
		return serverError(c, err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	product, err := h.store.FindByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) AddProduct(c echo.Context) error {
	ctx := c.Request().Context()

	files, err := imageFiles(c)
	if err != nil || len(files) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "No files uploaded"})
	}
	if len(files) > maxProductImages {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Too many files uploaded"})
	}

	lots, err := parseLots(c.FormValue("lotInfo"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid lotInfo format"})
	}

	product := models.Product{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		LotInfo:     lots,
	}

	// Price fields arrive as text and are not validated up front; a value
	// that fails to parse surfaces the same way a store write failure does.
	product.Price, err = strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil {
		return serverError(c, err)
	}
	if v := c.FormValue("discountedPrice"); v != "" {
		discounted, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return serverError(c, err)
		}
		product.DiscountedPrice = &discounted
	}

	// Sequential uploads, input order. A failure aborts the operation;
	// earlier uploads are not rolled back.
	urls, err := h.uploadAll(ctx, files)
	if err != nil {
		logrus.WithError(err).Error("image upload failed")
		return serverError(c, err)
	}
	product.Images = urls

	if err := h.store.Insert(ctx, &product); err != nil {
		logrus.WithError(err).Error("failed to insert product")
		return serverError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Product added successfully",
		"product": product,
	})
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	product, err := h.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
		}
		return serverError(c, err)
	}

	files, _ := imageFiles(c)
	if len(files) > maxProductImages {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Too many files uploaded"})
	}

	// existingImages only matters when new files arrive; without them the
	// stored images are left untouched.
	if len(files) > 0 {
		raw := c.FormValue("existingImages")
		if raw == "" {
			raw = "[]"
		}
		var updatedImages []string
		if err := json.Unmarshal([]byte(raw), &updatedImages); err != nil {
			return serverError(c, err)
		}

		// Every current image goes, re-listed or not.
		for _, url := range product.Images {
			if err := h.images.Delete(ctx, storage.PublicID(url)); err != nil {
				logrus.WithError(err).Error("image delete failed")
				return serverError(c, err)
			}
		}

		urls, err := h.uploadAll(ctx, files)
		if err != nil {
			logrus.WithError(err).Error("image upload failed")
			return serverError(c, err)
		}
		product.Images = append(updatedImages, urls...)
	}

	lots, err := parseLots(c.FormValue("lotInfo"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid lotInfo format"})
	}
	product.LotInfo = lots

	if v := c.FormValue("name"); v != "" {
		product.Name = v
	}
	if v := c.FormValue("description"); v != "" {
		product.Description = v
	}
	if v := c.FormValue("price"); v != "" {
		product.Price, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return serverError(c, err)
		}
	}
	if v := c.FormValue("discountedPrice"); v != "" {
		discounted, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return serverError(c, err)
		}
		product.DiscountedPrice = &discounted
	}

	if err := h.store.Update(ctx, product); err != nil {
		logrus.WithError(err).Error("failed to update product")
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Product updated successfully",
		"product": product,
	})
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	product, err := h.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
		}
		return serverError(c, err)
	}

	// Image deletes come first; if one fails the document stays, with any
	// already-deleted images gone for good.
	for _, url := range product.Images {
		if err := h.images.Delete(ctx, storage.PublicID(url)); err != nil {
			logrus.WithError(err).Error("image delete failed")
			return serverError(c, err)
		}
	}

	if err := h.store.Delete(ctx, id); err != nil {
		logrus.WithError(err).Error("failed to delete product")
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *ProductHandler) uploadAll(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, header := range files {
		url, err := h.uploadOne(ctx, header)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (h *ProductHandler) uploadOne(ctx context.Context, header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return h.images.Upload(ctx, src, header)
}

func imageFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	return form.File["images"], nil
}

func parseLots(raw string) ([]models.Lot, error) {
	var lots []models.Lot
	if err := json.Unmarshal([]byte(raw), &lots); err != nil {
		return nil, err
	}
	if lots == nil {
		return nil, errors.New("lotInfo is not a list")
	}
	for _, lot := range lots {
		if !lot.Size.Valid() {
			return nil, errors.New("unknown lot size: " + string(lot.Size))
		}
		if lot.Quantity < 0 {
			return nil, errors.New("negative lot quantity")
		}
	}
	return lots, nil
}

func serverError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"message": "Server error",
		"error":   err.Error(),
	})
}
