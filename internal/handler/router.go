package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/flowershop-admin/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware панели администратора.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Healthz)

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)
		r.Get(custommiddleware.LoginPath, h.LoginPage)
		r.Post(custommiddleware.LoginPath, h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		if h.live != nil {
			r.Get("/ws", h.live.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.GzipMiddleware)
			h.pageRoutes(r)
		})
	})

	// Preflight-запросы приходят без cookie, поэтому CORS стоит до проверки сессии.
	r.Route("/api", func(r chi.Router) {
		if len(h.allowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   h.allowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Encoding"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.GzipMiddleware)
		h.apiRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if custommiddleware.IsAPIRequest(r) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
			return
		}
		h.render(w, r, http.StatusNotFound, "notfound", page{Title: "Не найдено"})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func (h *Handler) pageRoutes(r chi.Router) {
	r.Get("/logout", h.Logout)
	r.Post("/logout", h.Logout)

	r.Get("/", h.Dashboard)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.Orders)
		r.Get("/{id}", h.OrderPage)
		r.Post("/{id}", h.OrderUpdate)
		r.Post("/{id}/status", h.OrderStatus)
		r.Post("/{id}/delete", h.OrderDelete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.Users)
		r.Get("/{id}", h.UserPage)
		r.Post("/{id}", h.UserUpdate)
		r.Post("/{id}/delete", h.UserDelete)
		r.Get("/{id}/loyalty", h.LoyaltyPage)
		r.Post("/{id}/loyalty", h.LoyaltyAdjust)
	})

	r.Route("/bouquets", func(r chi.Router) {
		r.Get("/", h.Bouquets)
		r.Post("/", h.BouquetCreate)
		r.Get("/new", h.BouquetNew)
		r.Get("/{id}", h.BouquetPage)
		r.Post("/{id}", h.BouquetUpdate)
		r.Post("/{id}/toggle", h.BouquetToggle)
		r.Post("/{id}/delete", h.BouquetDelete)
	})

	r.Get("/constructor", h.ConstructorRoot)
	r.Route("/constructor/{kind}", func(r chi.Router) {
		r.Get("/", h.Constructor)
		r.Post("/", h.ConstructorCreate)
		r.Post("/{id}", h.ConstructorUpdate)
		r.Post("/{id}/toggle", h.ConstructorToggle)
		r.Post("/{id}/delete", h.ConstructorDelete)
	})

	r.Get("/settings", h.Settings)
	r.Post("/settings", h.SettingsSave)

	r.Get("/broadcast", h.BroadcastPage)
	r.Post("/broadcast", h.BroadcastSend)
}

func (h *Handler) apiRoutes(r chi.Router) {
	r.Get("/me", h.APIMe)
	r.Get("/dashboard", h.APIDashboard)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.APIListOrders)
		r.Get("/{id}", h.APIGetOrder)
		r.Put("/{id}", h.APIUpdateOrder)
		r.Patch("/{id}/status", h.APIOrderStatus)
		r.Delete("/{id}", h.APIDeleteOrder)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.APIListUsers)
		r.Get("/{id}", h.APIGetUser)
		r.Put("/{id}", h.APIUpdateUser)
		r.Delete("/{id}", h.APIDeleteUser)
		r.Get("/{id}/orders", h.APIUserOrders)
		r.Get("/{id}/loyalty", h.APIGetLoyalty)
		r.Post("/{id}/loyalty/adjust", h.APIAdjustLoyalty)
	})

	r.Route("/bouquets", func(r chi.Router) {
		r.Get("/", h.APIListBouquets)
		r.Post("/", h.APICreateBouquet)
		r.Get("/{id}", h.APIGetBouquet)
		r.Put("/{id}", h.APIUpdateBouquet)
		r.Patch("/{id}/toggle", h.APIToggleBouquet)
		r.Delete("/{id}", h.APIDeleteBouquet)
	})

	r.Route("/constructor/{kind}", func(r chi.Router) {
		r.Get("/", h.APIListConstructor)
		r.Post("/", h.APICreateConstructor)
		r.Put("/{id}", h.APIUpdateConstructor)
		r.Patch("/{id}", h.APIToggleConstructor)
		r.Delete("/{id}", h.APIDeleteConstructor)
	})

	r.Get("/settings", h.APIListSettings)
	r.Put("/settings/{key}", h.APIUpdateSetting)

	r.Post("/broadcast", h.APIBroadcast)
}

// Healthz сообщает, что процесс панели запущен.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
