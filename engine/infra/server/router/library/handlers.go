package libraryrouter

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/infra/server/router"
	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/engine/speclib/uc"
)

var fileFields = []string{"files", "files[]"}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Infractions []string `json:"infractions"`
	TopK        int      `json:"top_k"`
}

// uploadDocuments handles POST /library/documents.
//
// @Summary Upload specification documents
// @Description Chunk, embed and store PDF or text files. mode=replace swaps the whole library.
// @Tags library
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Specification files"
// @Param mode formData string false "append or replace" example("append")
// @Success 200 {object} router.Response{data=uc.UploadOutput}
// @Failure 400 {object} core.Problem "Invalid request"
// @Failure 413 {object} core.Problem "Upload too large"
// @Failure 503 {object} core.Problem "Embedding model unavailable"
// @Router /library/documents [post]
func uploadDocuments(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			router.RespondWithError(c, &http.MaxBytesError{Limit: state.MaxUpload})
			return
		}
		router.RespondWithError(c, speclib.InvalidInput("upload", "expected a multipart form with files"))
		return
	}
	mode, err := speclib.ParseMode(formValue(c, form, "mode"))
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	headers := collectFiles(form)
	if len(headers) == 0 {
		router.RespondWithError(c, speclib.InvalidInput("upload", "at least one file is required"))
		return
	}
	files := make([]ingest.File, 0, len(headers))
	var partFailures []speclib.DocumentFailure
	for _, fh := range headers {
		file, err := readPart(fh, state.MaxFileSize)
		if err != nil {
			partFailures = append(partFailures, speclib.NewDocumentFailure(fh.Filename, err))
			continue
		}
		files = append(files, file)
	}
	out, err := state.Library.Upload().Execute(c.Request.Context(), &uc.UploadInput{Files: files, Mode: mode})
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	if len(partFailures) > 0 {
		out.Failures = append(partFailures, out.Failures...)
	}
	router.RespondOK(c, "documents uploaded", out)
}

func formValue(c *gin.Context, form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return c.Query(key)
}

func collectFiles(form *multipart.Form) []*multipart.FileHeader {
	var out []*multipart.FileHeader
	for _, field := range fileFields {
		out = append(out, form.File[field]...)
	}
	return out
}

func readPart(fh *multipart.FileHeader, limit int64) (ingest.File, error) {
	if limit <= 0 || limit > ingest.MaxFileSizeBytes {
		limit = ingest.MaxFileSizeBytes
	}
	if fh.Size > limit {
		return ingest.File{}, oversized(fh.Filename, limit)
	}
	part, err := fh.Open()
	if err != nil {
		return ingest.File{}, speclib.NewError(speclib.KindMalformedDocument, "upload", fh.Filename, err)
	}
	defer part.Close()
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return ingest.File{}, speclib.NewError(speclib.KindMalformedDocument, "upload", fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return ingest.File{}, oversized(fh.Filename, limit)
	}
	return ingest.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func oversized(name string, limit int64) error {
	return speclib.InvalidInput("upload", fmt.Sprintf("%s exceeds the %d byte file limit", name, limit))
}

// analyzeInfractions handles POST /analyze.
//
// @Summary Analyze infractions
// @Description Score each infraction against the spec library and classify it.
// @Tags analyze
// @Accept json
// @Produce json
// @Param payload body libraryrouter.AnalyzeRequest true "Infractions" example({"infractions":["Feeder voltage drop exceeds 3%"],"top_k":5})
// @Success 200 {object} router.Response{data=uc.AnalyzeOutput}
// @Failure 400 {object} core.Problem "Invalid request"
// @Failure 503 {object} core.Problem "Embedding model unavailable"
// @Router /analyze [post]
func analyzeInfractions(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		router.RespondWithError(c, speclib.InvalidInput("analyze", "invalid JSON body: "+err.Error()))
		return
	}
	out, err := state.Library.Analyze().Execute(c.Request.Context(), &uc.AnalyzeInput{
		Infractions: req.Infractions,
		TopK:        req.TopK,
	})
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondOK(c, "infractions analyzed", out)
}

// getLibrary handles GET /library.
//
// @Summary Library status
// @Tags library
// @Produce json
// @Success 200 {object} router.Response{data=library.Summary}
// @Router /library [get]
func getLibrary(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	summary, err := state.Library.Status().Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondOK(c, "library retrieved", summary)
}

// clearLibrary handles DELETE /library.
//
// @Summary Clear the library
// @Tags library
// @Success 204
// @Router /library [delete]
func clearLibrary(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	if err := state.Library.Clear().Execute(c.Request.Context()); err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondNoContent(c)
}
