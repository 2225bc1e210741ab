package service

// APIPrefix is the common path prefix of every endpoint.
const APIPrefix = "/pgrooms/v1"

// Endpoint paths.
const (
	PathAuthLogin          = APIPrefix + "/auth/login"
	PathAuthRegister       = APIPrefix + "/auth/register"
	PathAuthLogout         = APIPrefix + "/auth/logout"
	PathAuthRefresh        = APIPrefix + "/auth/refresh"
	PathAuthForgotPassword = APIPrefix + "/auth/forgot-password"
	PathAuthResetPassword  = APIPrefix + "/auth/reset-password"

	PathProperty           = APIPrefix + "/property"
	PathAdminProperties    = APIPrefix + "/admin/properties"
	PathAdminPropertyStats = APIPrefix + "/admin/properties/statistics"

	PathRoom = APIPrefix + "/room"

	PathTenant            = APIPrefix + "/tenant"
	PathTenantAssignRoom  = APIPrefix + "/tenant/assign-room"
	PathTenantBulkUpdate  = APIPrefix + "/tenant/bulk-update"
	PathTenantRoomDetails = APIPrefix + "/tenant/room-details"
	PathAdminTenants      = APIPrefix + "/admin/tenants"

	PathAdminOwners      = APIPrefix + "/admin/owners"
	PathAdminOwnerStats  = APIPrefix + "/admin/owners/statistics"
	PathAdminOwnerStatus = APIPrefix + "/admin/owner/status"

	PathPaymentCreateOrder = APIPrefix + "/payment/create-order"
	PathPaymentVerify      = APIPrefix + "/payment/verify"
	PathPayment            = APIPrefix + "/payment"
	PathPaymentStats       = APIPrefix + "/payment/stats"
	PathPaymentAnalytics   = APIPrefix + "/payment/analytics"

	PathLocationStates = APIPrefix + "/location/states"
	PathLocationCities = APIPrefix + "/location/cities"

	PathUserProfile        = APIPrefix + "/user/profile"
	PathUserChangePassword = APIPrefix + "/user/change-password"

	PathAdminDashboardOverview = APIPrefix + "/admin/dashboard/overview"
	PathAdminRecentActivity    = APIPrefix + "/admin/dashboard/recent-activity"
	PathAdminSystemHealth      = APIPrefix + "/admin/dashboard/system-health"
)
