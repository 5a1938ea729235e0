package handlers

import (
	"errors"
	"net/http"
	"taskSync/internal/logger"
	"taskSync/internal/service"

	"go.uber.org/zap"
)

// handleServiceError отвечает клиенту по ошибке сервиса: бизнес-ошибки со своим кодом, остальное 500
func handleServiceError(w http.ResponseWriter, err error) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode))

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err)
	responseWithJSON(w, http.StatusInternalServerError,
		toPayload("error", "INTERNAL_ERROR"),
		toPayload("message", err.Error()))
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeVersionConflict, service.CodeNotDeleted:
		return http.StatusConflict
	case service.CodeTaskDeleted:
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}
