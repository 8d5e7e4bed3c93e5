package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/threadkart/threadkart-backend-go/models"
)

type fakeProductStore struct {
	products  []models.Product
	findErr   error
	insertErr error
	updateErr error
	deleteErr error
}

func (s *fakeProductStore) FindAll(ctx context.Context) ([]models.Product, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return append([]models.Product(nil), s.products...), nil
}

func (s *fakeProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := range s.products {
		if s.products[i].ID == id {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *fakeProductStore) Insert(ctx context.Context, product *models.Product) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	product.ID = primitive.NewObjectID()
	s.products = append(s.products, *product)
	return nil
}

func (s *fakeProductStore) Update(ctx context.Context, product *models.Product) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.products {
		if s.products[i].ID == product.ID {
			s.products[i] = *product
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (s *fakeProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

type fakeImageStore struct {
	uploads      []string
	deletes      []string
	uploadCalls  int
	failUploadAt int
	failDeleteAt int
}

func (f *fakeImageStore) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	f.uploadCalls++
	if f.failUploadAt == f.uploadCalls {
		return "", errors.New("image host unavailable")
	}
	url := fmt.Sprintf("https://img.example.com/products/img%d.jpg", f.uploadCalls)
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, publicID string) error {
	if f.failDeleteAt == len(f.deletes)+1 {
		return errors.New("image host unavailable")
	}
	f.deletes = append(f.deletes, publicID)
	return nil
}

func multipartBody(t *testing.T, fields map[string]string, fileCount int) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < fileCount; i++ {
		fw, err := w.CreateFormFile("images", fmt.Sprintf("photo%d.jpg", i+1))
		require.NoError(t, err)
		_, err = fw.Write([]byte("jpeg bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newMultipartContext(method, target string, body *bytes.Buffer, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func responseMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	msg, _ := resp["message"].(string)
	return msg
}

func validFields() map[string]string {
	return map[string]string{
		"name":        "Denim Jacket",
		"description": "Stonewashed denim jacket",
		"price":       "49.99",
		"lotInfo":     `[{"size":"M","quantity":3},{"size":"L","quantity":0}]`,
	}
}

func TestAddProductStoresImagesInUploadOrder(t *testing.T) {
	store := &fakeProductStore{}
	images := &fakeImageStore{}
	h := NewProductHandler(store, images)

	body, ct := multipartBody(t, validFields(), 3)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)

	require.NoError(t, h.AddProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Product added successfully", responseMessage(t, rec))

	require.Len(t, store.products, 1)
	assert.Equal(t, images.uploads, store.products[0].Images)
	assert.Len(t, store.products[0].Images, 3)
	assert.False(t, store.products[0].ID.IsZero())
}

func TestAddProductLotInfoRoundTrips(t *testing.T) {
	store := &fakeProductStore{}
	h := NewProductHandler(store, &fakeImageStore{})

	body, ct := multipartBody(t, validFields(), 1)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)
	require.NoError(t, h.AddProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	listCtx, listRec := newMultipartContext(http.MethodGet, "/api/products", &bytes.Buffer{}, "application/json")
	require.NoError(t, h.GetProducts(listCtx))
	require.Equal(t, http.StatusOK, listRec.Code)

	var products []models.Product
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, []models.Lot{
		{Size: models.SizeM, Quantity: 3},
		{Size: models.SizeL, Quantity: 0},
	}, products[0].LotInfo)
}

func TestAddProductRejectsNoFiles(t *testing.T) {
	store := &fakeProductStore{}
	images := &fakeImageStore{}
	h := NewProductHandler(store, images)

	body, ct := multipartBody(t, validFields(), 0)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)

	require.NoError(t, h.AddProduct(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files uploaded", responseMessage(t, rec))
	assert.Zero(t, images.uploadCalls)
	assert.Empty(t, store.products)
}

func TestAddProductRejectsTooManyFiles(t *testing.T) {
	h := NewProductHandler(&fakeProductStore{}, &fakeImageStore{})

	body, ct := multipartBody(t, validFields(), 6)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)

	require.NoError(t, h.AddProduct(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddProductRejectsMalformedLotInfoBeforeUploading(t *testing.T) {
	images := &fakeImageStore{}
	h := NewProductHandler(&fakeProductStore{}, images)

	fields := validFields()
	fields["lotInfo"] = `{"size":"M"}`
	body, ct := multipartBody(t, fields, 2)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)

	require.NoError(t, h.AddProduct(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid lotInfo format", responseMessage(t, rec))
	assert.Zero(t, images.uploadCalls)
}

func TestAddProductRejectsUnknownLotSize(t *testing.T) {
	h := NewProductHandler(&fakeProductStore{}, &fakeImageStore{})

	fields := validFields()
	fields["lotInfo"] = `[{"size":"XS","quantity":1}]`
	body, ct := multipartBody(t, fields, 1)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)

	require.NoError(t, h.AddProduct(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid lotInfo format", responseMessage(t, rec))
}

func TestAddProductAbortsOnUploadFailureWithoutInsert(t *testing.T) {
	store := &fakeProductStore{}
	images := &fakeImageStore{failUploadAt: 2}
	h := NewProductHandler(store, images)

	body, ct := multipartBody(t, validFields(), 3)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)

	require.NoError(t, h.AddProduct(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 2, images.uploadCalls)
	assert.Empty(t, store.products)
}

func TestAddProductOptionalDiscountedPrice(t *testing.T) {
	store := &fakeProductStore{}
	h := NewProductHandler(store, &fakeImageStore{})

	fields := validFields()
	fields["discountedPrice"] = "39.99"
	body, ct := multipartBody(t, fields, 1)
	c, rec := newMultipartContext(http.MethodPost, "/api/products/add", body, ct)

	require.NoError(t, h.AddProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, store.products[0].DiscountedPrice)
	assert.Equal(t, 39.99, *store.products[0].DiscountedPrice)

	// Absent means no discount, not zero.
	body2, ct2 := multipartBody(t, validFields(), 1)
	c2, rec2 := newMultipartContext(http.MethodPost, "/api/products/add", body2, ct2)
	require.NoError(t, h.AddProduct(c2))
	require.Equal(t, http.StatusCreated, rec2.Code)
	assert.Nil(t, store.products[1].DiscountedPrice)
}

func seedProduct(store *fakeProductStore, images ...string) models.Product {
	product := models.Product{
		ID:          primitive.NewObjectID(),
		Name:        "Denim Jacket",
		Description: "Stonewashed denim jacket",
		Price:       49.99,
		Images:      images,
		LotInfo:     []models.Lot{{Size: models.SizeM, Quantity: 3}},
	}
	store.products = append(store.products, product)
	return product
}

func paramContext(method, target string, body *bytes.Buffer, contentType, id string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newMultipartContext(method, target, body, contentType)
	c.SetPath("/api/products/:id")
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestUpdateProductIgnoresExistingImagesWithoutNewFiles(t *testing.T) {
	store := &fakeProductStore{}
	images := &fakeImageStore{}
	product := seedProduct(store,
		"https://img.example.com/products/old1.jpg",
		"https://img.example.com/products/old2.png",
	)
	h := NewProductHandler(store, images)

	fields := validFields()
	fields["existingImages"] = `["https://img.example.com/products/old1.jpg"]`
	body, ct := multipartBody(t, fields, 0)
	c, rec := paramContext(http.MethodPut, "/api/products/"+product.ID.Hex(), body, ct, product.ID.Hex())

	require.NoError(t, h.UpdateProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, images.deletes)
	assert.Equal(t, product.Images, store.products[0].Images)
}

func TestUpdateProductReplacesAllImagesWhenNewFilesArrive(t *testing.T) {
	store := &fakeProductStore{}
	images := &fakeImageStore{}
	product := seedProduct(store,
		"https://img.example.com/products/old1.jpg",
		"https://img.example.com/products/old2.png",
	)
	h := NewProductHandler(store, images)

	fields := validFields()
	fields["existingImages"] = `["https://img.example.com/products/keep.jpg"]`
	body, ct := multipartBody(t, fields, 1)
	c, rec := paramContext(http.MethodPut, "/api/products/"+product.ID.Hex(), body, ct, product.ID.Hex())

	require.NoError(t, h.UpdateProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Both stored images are deleted even though one was re-listed.
	assert.Equal(t, []string{"old1", "old2"}, images.deletes)
	assert.Equal(t, []string{
		"https://img.example.com/products/keep.jpg",
		"https://img.example.com/products/img1.jpg",
	}, store.products[0].Images)
}

func TestUpdateProductKeepsScalarsWhenFieldsEmpty(t *testing.T) {
	store := &fakeProductStore{}
	product := seedProduct(store, "https://img.example.com/products/old1.jpg")
	h := NewProductHandler(store, &fakeImageStore{})

	body, ct := multipartBody(t, map[string]string{
		"lotInfo": `[{"size":"XL","quantity":7}]`,
	}, 0)
	c, rec := paramContext(http.MethodPut, "/api/products/"+product.ID.Hex(), body, ct, product.ID.Hex())

	require.NoError(t, h.UpdateProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	updated := store.products[0]
	assert.Equal(t, product.Name, updated.Name)
	assert.Equal(t, product.Description, updated.Description)
	assert.Equal(t, product.Price, updated.Price)
	assert.Equal(t, []models.Lot{{Size: models.SizeXL, Quantity: 7}}, updated.LotInfo)
}

func TestUpdateProductInvalidID(t *testing.T) {
	h := NewProductHandler(&fakeProductStore{}, &fakeImageStore{})

	body, ct := multipartBody(t, validFields(), 0)
	c, rec := paramContext(http.MethodPut, "/api/products/nope", body, ct, "nope")

	require.NoError(t, h.UpdateProduct(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid product ID", responseMessage(t, rec))
}

func TestUpdateProductNotFound(t *testing.T) {
	h := NewProductHandler(&fakeProductStore{}, &fakeImageStore{})

	body, ct := multipartBody(t, validFields(), 0)
	id := primitive.NewObjectID().Hex()
	c, rec := paramContext(http.MethodPut, "/api/products/"+id, body, ct, id)

	require.NoError(t, h.UpdateProduct(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", responseMessage(t, rec))
}

func TestDeleteProductRemovesImagesThenDocument(t *testing.T) {
	store := &fakeProductStore{}
	images := &fakeImageStore{}
	product := seedProduct(store,
		"https://img.example.com/products/a.jpg",
		"https://img.example.com/products/b.jpg",
		"https://img.example.com/products/c.webp",
	)
	h := NewProductHandler(store, images)

	c, rec := paramContext(http.MethodDelete, "/api/products/"+product.ID.Hex(), &bytes.Buffer{}, "application/json", product.ID.Hex())

	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", responseMessage(t, rec))
	assert.Equal(t, []string{"a", "b", "c"}, images.deletes)
	assert.Empty(t, store.products)
}

func TestDeleteProductKeepsDocumentWhenImageDeleteFails(t *testing.T) {
	store := &fakeProductStore{}
	images := &fakeImageStore{failDeleteAt: 2}
	product := seedProduct(store,
		"https://img.example.com/products/a.jpg",
		"https://img.example.com/products/b.jpg",
		"https://img.example.com/products/c.webp",
	)
	h := NewProductHandler(store, images)

	c, rec := paramContext(http.MethodDelete, "/api/products/"+product.ID.Hex(), &bytes.Buffer{}, "application/json", product.ID.Hex())

	require.NoError(t, h.DeleteProduct(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, images.deletes, 1)
	require.Len(t, store.products, 1)
	assert.Equal(t, product.ID, store.products[0].ID)
}

func TestDeleteProductNotFound(t *testing.T) {
	h := NewProductHandler(&fakeProductStore{}, &fakeImageStore{})

	id := primitive.NewObjectID().Hex()
	c, rec := paramContext(http.MethodDelete, "/api/products/"+id, &bytes.Buffer{}, "application/json", id)

	require.NoError(t, h.DeleteProduct(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProductsSurfacesStoreFailure(t *testing.T) {
	store := &fakeProductStore{findErr: errors.New("connection reset")}
	h := NewProductHandler(store, &fakeImageStore{})

	c, rec := newMultipartContext(http.MethodGet, "/api/products", &bytes.Buffer{}, "application/json")

	require.NoError(t, h.GetProducts(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetProductByID(t *testing.T) {
	store := &fakeProductStore{}
	product := seedProduct(store, "https://img.example.com/products/a.jpg")
	h := NewProductHandler(store, &fakeImageStore{})

	c, rec := paramContext(http.MethodGet, "/api/products/"+product.ID.Hex(), &bytes.Buffer{}, "application/json", product.ID.Hex())

	require.NoError(t, h.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, product.ID, got.ID)
	assert.Equal(t, product.Images, got.Images)
}
