package laundry

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	model "github.com/glkeru/laundry/internal/models"
	services "github.com/glkeru/laundry/internal/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	router  *mux.Router
	orders  *services.OrderService
	rewards *services.RewardService
	logger  *zap.Logger
}

type statusRequest struct {
	Status   model.OrderStatus `json:"status"`
	Note     string            `json:"note"`
	Location *model.Location   `json:"location"`
}

type referralRequest struct {
	ReferralCode string `json:"referralCode"`
	NewUserID    string `json:"newUserId"`
}

type pendingResponse struct {
	Order   model.Order `json:"order"`
	Warning string      `json:"warning"`
}

func NewHandler(orders *services.OrderService, rewards *services.RewardService, logger *zap.Logger) *Handler {
	router := mux.NewRouter()
	h := &Handler{router, orders, rewards, logger}

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()
	api.Use(MiddlewareLog(), MiddlewareJSON())
	api.HandleFunc("/orders", h.CreateOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.GetOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", h.TransitionHandler).Methods(http.MethodPost)
	api.HandleFunc("/tracking/{code}", h.TrackingHandler).Methods(http.MethodGet)
	api.HandleFunc("/scans", h.ScanHandler).Methods(http.MethodPost)
	api.HandleFunc("/loyalty/{userId}", h.LedgerHandler).Methods(http.MethodGet)
	api.HandleFunc("/loyalty/{userId}/achievements", h.AchievementsProgressHandler).Methods(http.MethodGet)
	api.HandleFunc("/loyalty/{userId}/rewards", h.RewardsHandler).Methods(http.MethodGet)
	api.HandleFunc("/loyalty/{userId}/redemptions", h.RedeemHandler).Methods(http.MethodPost)
	api.HandleFunc("/loyalty/{userId}/redemptions", h.RedemptionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/redemptions/{code}/use", h.UseCouponHandler).Methods(http.MethodPost)
	api.HandleFunc("/referrals", h.ReferralHandler).Methods(http.MethodPost)
	api.HandleFunc("/achievements", h.CatalogHandler).Methods(http.MethodGet)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.router.ServeHTTP(w, req)
}

func (h *Handler) Log(msg string, service string, err error) {
	h.logger.Error(msg,
		zap.String("service", service),
		zap.Error(err),
	)
}

// пользователь из заголовков шлюза
func actorFrom(req *http.Request) model.Actor {
	return model.Actor{
		UserID: req.Header.Get("X-User-ID"),
		Admin:  req.Header.Get("X-User-Role") == "admin",
	}
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		h.Log("Marshal", "write", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	w.Write(j)
}

func (h *Handler) fail(w http.ResponseWriter, service string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log("Internal error", service, err)
	}
	h.write(w, status, errorResponse{err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, req *http.Request, service string, v any) bool {
	body, err := io.ReadAll(req.Body)
	defer req.Body.Close()
	if err != nil {
		h.Log("Get request body", service, err)
		h.write(w, http.StatusBadRequest, errorResponse{"body is empty"})
		return false
	}
	if err = json.Unmarshal(body, v); err != nil {
		h.write(w, http.StatusBadRequest, errorResponse{"body is not correct"})
		return false
	}
	return true
}

// данные счета доступны владельцу и администратору
func (h *Handler) ownerOnly(w http.ResponseWriter, req *http.Request) (string, bool) {
	userID := mux.Vars(req)["userId"]
	actor := actorFrom(req)
	if !actor.Admin && actor.UserID != userID {
		h.write(w, http.StatusForbidden, errorResponse{model.ErrForbidden.Error()})
		return "", false
	}
	return userID, true
}

// Создать заказ
func (h *Handler) CreateOrderHandler(w http.ResponseWriter, req *http.Request) {
	var in model.NewOrder
	if !h.decode(w, req, "CreateOrderHandler", &in) {
		return
	}
	order, err := h.orders.CreateOrder(req.Context(), in, actorFrom(req))
	if err != nil {
		h.fail(w, "CreateOrderHandler", err)
		return
	}
	h.write(w, http.StatusCreated, order)
}

// Получить заказ
func (h *Handler) GetOrderHandler(w http.ResponseWriter, req *http.Request) {
	order, err := h.orders.GetOrder(req.Context(), mux.Vars(req)["id"], actorFrom(req))
	if err != nil {
		h.fail(w, "GetOrderHandler", err)
		return
	}
	h.write(w, http.StatusOK, order)
}

// Сменить статус заказа
func (h *Handler) TransitionHandler(w http.ResponseWriter, req *http.Request) {
	var in statusRequest
	if !h.decode(w, req, "TransitionHandler", &in) {
		return
	}
	order, err := h.orders.TransitionOrder(req.Context(), mux.Vars(req)["id"], in.Status, actorFrom(req), in.Note, in.Location)
	h.transitionResult(w, "TransitionHandler", order, err)
}

// доставка записана, начисление будет повторено следующим вызовом
func (h *Handler) transitionResult(w http.ResponseWriter, service string, order model.Order, err error) {
	if errors.Is(err, model.ErrRewardsPending) {
		h.write(w, http.StatusAccepted, pendingResponse{order, err.Error()})
		return
	}
	if err != nil {
		h.fail(w, service, err)
		return
	}
	h.write(w, http.StatusOK, order)
}

// Отслеживание по коду
func (h *Handler) TrackingHandler(w http.ResponseWriter, req *http.Request) {
	order, err := h.orders.GetOrderByTracking(req.Context(), mux.Vars(req)["code"])
	if err != nil {
		h.fail(w, "TrackingHandler", err)
		return
	}
	h.write(w, http.StatusOK, order)
}

// Сканирование метки, только для устройств с ролью администратора
func (h *Handler) ScanHandler(w http.ResponseWriter, req *http.Request) {
	if !actorFrom(req).Admin {
		h.write(w, http.StatusForbidden, errorResponse{model.ErrForbidden.Error()})
		return
	}
	var scan model.TagScan
	if !h.decode(w, req, "ScanHandler", &scan) {
		return
	}
	order, err := h.orders.ScanTag(req.Context(), scan)
	h.transitionResult(w, "ScanHandler", order, err)
}

func (h *Handler) LedgerHandler(w http.ResponseWriter, req *http.Request) {
	userID, ok := h.ownerOnly(w, req)
	if !ok {
		return
	}
	ledger, err := h.rewards.GetLoyaltyLedger(req.Context(), userID)
	if err != nil {
		h.fail(w, "LedgerHandler", err)
		return
	}
	h.write(w, http.StatusOK, ledger)
}

func (h *Handler) AchievementsProgressHandler(w http.ResponseWriter, req *http.Request) {
	userID, ok := h.ownerOnly(w, req)
	if !ok {
		return
	}
	progress, err := h.rewards.ListAchievementProgress(req.Context(), userID)
	if err != nil {
		h.fail(w, "AchievementsProgressHandler", err)
		return
	}
	h.write(w, http.StatusOK, progress)
}

func (h *Handler) RewardsHandler(w http.ResponseWriter, req *http.Request) {
	userID, ok := h.ownerOnly(w, req)
	if !ok {
		return
	}
	rewards, err := h.rewards.ListRewards(req.Context(), userID)
	if err != nil {
		h.fail(w, "RewardsHandler", err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	h.write(w, http.StatusOK, rewards)
}

// Списание баллов
func (h *Handler) RedeemHandler(w http.ResponseWriter, req *http.Request) {
	userID, ok := h.ownerOnly(w, req)
	if !ok {
		return
	}
	var in model.RedemptionRequest
	if !h.decode(w, req, "RedeemHandler", &in) {
		return
	}
	red, err := h.rewards.RedeemPoints(req.Context(), userID, in)
	if err != nil {
		h.fail(w, "RedeemHandler", err)
		return
	}
	h.write(w, http.StatusCreated, red)
}

func (h *Handler) RedemptionsHandler(w http.ResponseWriter, req *http.Request) {
	userID, ok := h.ownerOnly(w, req)
	if !ok {
		return
	}
	reds, err := h.rewards.ListRedemptions(req.Context(), userID)
	if err != nil {
		h.fail(w, "RedemptionsHandler", err)
		return
	}
	if reds == nil {
		reds = []model.Redemption{}
	}
	h.write(w, http.StatusOK, reds)
}

// Погашение купона
func (h *Handler) UseCouponHandler(w http.ResponseWriter, req *http.Request) {
	red, err := h.rewards.UseCoupon(req.Context(), mux.Vars(req)["code"], actorFrom(req))
	if err != nil {
		h.fail(w, "UseCouponHandler", err)
		return
	}
	h.write(w, http.StatusOK, red)
}

// Регистрация по реферальному коду
func (h *Handler) ReferralHandler(w http.ResponseWriter, req *http.Request) {
	var in referralRequest
	if !h.decode(w, req, "ReferralHandler", &in) {
		return
	}
	actor := actorFrom(req)
	if !actor.Admin && actor.UserID != in.NewUserID {
		h.write(w, http.StatusForbidden, errorResponse{model.ErrForbidden.Error()})
		return
	}
	res, err := h.rewards.ProcessReferral(req.Context(), in.ReferralCode, in.NewUserID)
	if err != nil {
		h.fail(w, "ReferralHandler", err)
		return
	}
	h.write(w, http.StatusOK, res)
}

// Справочник достижений
func (h *Handler) CatalogHandler(w http.ResponseWriter, req *http.Request) {
	h.write(w, http.StatusOK, services.Catalog())
}
