package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/controllers"
	"github.com/guincho-oliveira/crm-api/middleware"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/services"
	"gorm.io/gorm"
)

// Access declares who may call a route
type Access struct {
	public bool
	roles  []models.Role
}

var (
	// Public routes skip the auth gate
	Public = Access{public: true}
	// Authenticated routes accept any valid session
	Authenticated = Access{roles: models.AllRoles()}
)

// Roles restricts a route to the given profiles
func Roles(roles ...models.Role) Access {
	return Access{roles: roles}
}

// Route is one row of the capability table
type Route struct {
	Method  string
	Path    string
	Access  Access
	Handler gin.HandlerFunc
}

// Deps carries everything the HTTP layer is built from
type Deps struct {
	DB          *gorm.DB
	Auth        middleware.AuthConfig
	Location    *time.Location
	CORSOrigins []string

	Users     *services.UserService
	Customers *services.Catalog[models.Customer]
	Drivers   *services.Catalog[models.Driver]
	Vehicles  *services.Catalog[models.Vehicle]
	Orders    *services.OrderService
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService
	Audit     *services.AuditService

	// LocalFiles is set when attachments are kept on disk and served by the API
	LocalFiles *services.LocalAttachmentStore
}

var (
	allRoles  = []models.Role{models.RoleGeneralAdmin, models.RoleAdmin, models.RoleOperations, models.RoleFinance}
	editors   = []models.Role{models.RoleGeneralAdmin, models.RoleAdmin, models.RoleOperations}
	managers  = []models.Role{models.RoleGeneralAdmin, models.RoleAdmin}
	financial = []models.Role{models.RoleGeneralAdmin, models.RoleAdmin, models.RoleFinance}
)

// Table lists every route of the API with its allowed roles
func Table(d Deps) []Route {
	health := controllers.NewHealthController(d.DB)
	users := controllers.NewUserController(d.Users)
	customers := controllers.NewCatalogController(d.Customers)
	drivers := controllers.NewCatalogController(d.Drivers)
	vehicles := controllers.NewCatalogController(d.Vehicles)
	orders := controllers.NewOrderController(d.Orders, d.Location)
	notes := controllers.NewNoteController(d.Orders)
	ledger := controllers.NewLedgerController(d.Ledger, d.Location)
	dashboard := controllers.NewDashboardController(d.Dashboard)
	audit := controllers.NewAuditController(d.Audit)

	table := []Route{
		{http.MethodGet, "/health", Public, health.Health},
		{http.MethodGet, "/database/status", Public, health.DatabaseStatus},

		// sessions
		{http.MethodPost, "/login", Public, users.Login},
		{http.MethodPost, "/logout", Authenticated, users.Logout},

		// users
		{http.MethodPost, "/register", Roles(managers...), users.Register},
		{http.MethodGet, "/usuarios", Roles(managers...), users.List},
		{http.MethodGet, "/usuarios/me", Authenticated, users.Me},
		{http.MethodPut, "/usuarios/me/foto", Authenticated, users.UpdatePhoto},
		{http.MethodPut, "/usuarios/me/tema", Authenticated, users.UpdateTheme},
		{http.MethodPut, "/usuarios/bulk-actions", Roles(models.RoleGeneralAdmin), users.BulkAction},
		{http.MethodPost, "/usuarios/logout-force/:id", Roles(models.RoleGeneralAdmin), users.ForceLogout},
		{http.MethodGet, "/usuarios/:id", Roles(models.RoleGeneralAdmin), users.Get},
		{http.MethodPut, "/usuarios/:id", Roles(managers...), users.Update},
		{http.MethodPut, "/usuarios/:id/password", Roles(models.RoleGeneralAdmin), users.ChangePassword},
		{http.MethodPut, "/usuarios/:id/regras-acesso", Roles(models.RoleGeneralAdmin), users.SetAccessRules},
		{http.MethodPut, "/usuarios/:id/status", Roles(managers...), users.SetStatus},
		{http.MethodDelete, "/usuarios/:id", Roles(models.RoleGeneralAdmin), users.Delete},
		{http.MethodGet, "/logs", Roles(managers...), audit.List},

		// registries
		{http.MethodGet, "/clientes", Roles(allRoles...), customers.List},
		{http.MethodGet, "/clientes/:id", Roles(allRoles...), customers.Get},
		{http.MethodPost, "/clientes", Roles(editors...), customers.Create},
		{http.MethodPut, "/clientes/:id", Roles(editors...), customers.Update},
		{http.MethodDelete, "/clientes/:id", Roles(managers...), customers.Delete},
		{http.MethodGet, "/motoristas", Roles(allRoles...), drivers.List},
		{http.MethodGet, "/motoristas/:id", Roles(allRoles...), drivers.Get},
		{http.MethodPost, "/motoristas", Roles(editors...), drivers.Create},
		{http.MethodPut, "/motoristas/:id", Roles(editors...), drivers.Update},
		{http.MethodDelete, "/motoristas/:id", Roles(managers...), drivers.Delete},
		{http.MethodGet, "/veiculos", Roles(allRoles...), vehicles.List},
		{http.MethodGet, "/veiculos/:id", Roles(allRoles...), vehicles.Get},
		{http.MethodPost, "/veiculos", Roles(editors...), vehicles.Create},
		{http.MethodPut, "/veiculos/:id", Roles(editors...), vehicles.Update},
		{http.MethodDelete, "/veiculos/:id", Roles(managers...), vehicles.Delete},

		// service orders
		{http.MethodGet, "/ordens", Roles(allRoles...), orders.List},
		{http.MethodPost, "/ordens", Roles(editors...), orders.Create},
		{http.MethodGet, "/ordens/motorista/:id", Authenticated, orders.ListByDriver},
		{http.MethodGet, "/ordens/:id", Roles(allRoles...), orders.Get},
		{http.MethodPut, "/ordens/:id/status", Roles(editors...), orders.UpdateStatus},
		{http.MethodPut, "/ordens/:id/reagendar", Roles(editors...), orders.Reschedule},
		{http.MethodDelete, "/ordens/:id", Roles(models.RoleGeneralAdmin), orders.Delete},
		{http.MethodGet, "/ordens/:id/notas", Roles(allRoles...), notes.List},
		{http.MethodPost, "/ordens/:id/notas", Roles(editors...), notes.Add},
		{http.MethodPost, "/ordens/:id/anexos", Roles(editors...), notes.Attach},

		// ledger
		{http.MethodGet, "/financeiro", Roles(financial...), ledger.List},
		{http.MethodPost, "/financeiro", Roles(financial...), ledger.Create},
		{http.MethodPut, "/financeiro/:id", Roles(financial...), ledger.Update},
		{http.MethodDelete, "/financeiro/:id", Roles(managers...), ledger.Delete},
		{http.MethodGet, "/categorias-financeiras", Roles(financial...), ledger.Categories},
		{http.MethodPost, "/categorias-financeiras", Roles(managers...), ledger.CreateCategory},

		// dashboard
		{http.MethodGet, "/dashboard/resumo", Roles(allRoles...), dashboard.Summary},
		{http.MethodGet, "/dashboard/faturamento-anual", Roles(allRoles...), dashboard.AnnualRevenue},
		{http.MethodGet, "/dashboard/lucro-por-motorista", Roles(managers...), dashboard.ProfitByDriver},
		{http.MethodGet, "/dashboard/picos-faturamento", Roles(managers...), dashboard.RevenuePeaks},
		{http.MethodGet, "/dashboard/motorista/:id/produtividade", Authenticated, dashboard.DriverProductivity},
		{http.MethodPut, "/dashboard/meta-lucro", Roles(managers...), dashboard.SetProfitGoal},
	}

	if d.LocalFiles != nil {
		files := controllers.NewAttachmentController(d.LocalFiles)
		table = append(table, Route{http.MethodGet, "/anexos/*key", Authenticated, files.Download})
	}
	return table
}

// Validate checks the capability table: every protected route names at
// least one known role and no method and path pair appears twice
func Validate(table []Route) error {
	seen := make(map[string]bool, len(table))
	for _, r := range table {
		key := r.Method + " " + r.Path
		if seen[key] {
			return fmt.Errorf("route %s declared twice", key)
		}
		seen[key] = true

		if r.Handler == nil {
			return fmt.Errorf("route %s has no handler", key)
		}
		if r.Access.public {
			if len(r.Access.roles) > 0 {
				return fmt.Errorf("route %s is public but lists roles", key)
			}
			continue
		}
		if len(r.Access.roles) == 0 {
			return fmt.Errorf("route %s allows no role", key)
		}
		for _, role := range r.Access.roles {
			if !role.Valid() {
				return fmt.Errorf("route %s names unknown role %q", key, role)
			}
		}
	}
	return nil
}

// Register mounts the capability table under /api. An invalid table panics.
func Register(router *gin.Engine, d Deps) {
	table := Table(d)
	if err := Validate(table); err != nil {
		panic(fmt.Sprintf("invalid route table: %v", err))
	}

	auth := middleware.EnsureValidToken(d.Auth, d.Users)
	api := router.Group("/api")
	for _, r := range table {
		handlers := make([]gin.HandlerFunc, 0, 3)
		if !r.Access.public {
			handlers = append(handlers, auth)
			if len(r.Access.roles) < len(models.AllRoles()) {
				handlers = append(handlers, middleware.RequireRoles(r.Access.roles...))
			}
		}
		handlers = append(handlers, r.Handler)
		api.Handle(r.Method, r.Path, handlers...)
	}
}

// NewRouter builds the engine with logging, recovery and CORS
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(d.CORSOrigins))
	Register(router, d)
	return router
}
