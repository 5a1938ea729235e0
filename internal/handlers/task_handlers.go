package handlers

import (
	"encoding/json"
	"net/http"
	"taskSync/internal/handlers/dto"
	"taskSync/internal/logger"
	"taskSync/internal/middleware"
	"taskSync/internal/models/task"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService Service
	labels      task.Labels
}

func NewTaskHandler(taskService Service, labels task.Labels) TaskHandler {
	if labels == nil {
		labels = task.DefaultLabels()
	}
	return TaskHandler{
		TaskService: taskService,
		labels:      labels,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	healthCheck(w, s.TaskService.HealthCheck(r.Context()))
}

func (s *TaskHandler) GetActiveTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	tasks, err := s.TaskService.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Активные задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)))

	responseWithJSON(w, http.StatusOK, toPayload("tasks", tasks), toPayload("count", len(tasks)))
}

func (s *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	tasks, err := s.TaskService.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Все задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)))

	responseWithJSON(w, http.StatusOK, toPayload("tasks", tasks), toPayload("count", len(tasks)))
}

func (s *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	code, ok := taskCode(w, r)
	if !ok {
		return
	}

	t, err := s.TaskService.Get(r.Context(), code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("task", t))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var request dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	if request.Title == "" {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "title"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "название не может быть пустым")
		return
	}
	if request.CreatedBy == "" {
		request.CreatedBy = middleware.GetActor(r.Context())
	}

	draft, err := request.ToDraft(s.labels)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.TaskService.Create(r.Context(), draft)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.TaskID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("task", created))
}

func (s *TaskHandler) PatchTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	code, ok := taskCode(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	decoder := json.NewDecoder(r.Body)
	defer r.Body.Close()

	if err := decoder.Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления: "+err.Error())
		return
	}

	patch, err := request.ToPatch(s.labels)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.IsEmpty() {
		responseWithError(w, http.StatusBadRequest, "пустой патч")
		return
	}

	updated, err := s.TaskService.Update(r.Context(), code, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", code),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("task", updated))
}

// DeleteTask мягкое удаление; автор берётся из X-User-ID
func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	code, ok := taskCode(w, r)
	if !ok {
		return
	}

	actor := middleware.GetActor(r.Context())
	if actor == "" {
		logger.Warn("HTTP: Не указан пользователь",
			zap.String("header", middleware.ActorHeader),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не передан заголовок "+middleware.ActorHeader)
		return
	}

	if err := s.TaskService.SoftDelete(r.Context(), code, actor); err != nil {
		handleServiceError(w, err)
		return
	}

	responseWithJSON(w, http.StatusNoContent)
}

func (s *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	code, ok := taskCode(w, r)
	if !ok {
		return
	}

	restored, err := s.TaskService.Restore(r.Context(), code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("task", restored))
}

func (s *TaskHandler) PurgeTask(w http.ResponseWriter, r *http.Request) {
	code, ok := taskCode(w, r)
	if !ok {
		return
	}

	if err := s.TaskService.PermanentDelete(r.Context(), code); err != nil {
		handleServiceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Задача удалена безвозвратно", zap.String("task_id", code))
	responseWithJSON(w, http.StatusNoContent)
}

func taskCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := chi.URLParam(r, "code")
	if code == "" {
		logger.Warn("HTTP: Неверное значение кода задачи",
			zap.String("error", "empty code"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "код задачи не может быть пустым")
		return "", false
	}
	return code, true
}
