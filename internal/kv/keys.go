package kv

// Well-known storage keys.
const (
	KeyAuthToken      = "chefconnect_auth_token"
	KeyUserData       = "chefconnect_user_data"
	KeyPreferences    = "chefconnect_preferences"
	KeyFavorites      = "chefconnect_favorites"
	KeySearchHistory  = "chefconnect_search_history"
	KeyRecentlyViewed = "chefconnect_recently_viewed"
	KeyShoppingList   = "chefconnect_shopping_list"
	KeyMealPlan       = "chefconnect_meal_plan"
	KeyTheme          = "chefconnect_theme"
	KeyLanguage       = "chefconnect_language"
	KeySettings       = "chefconnect_settings"
	KeyAccounts       = "chefconnect_accounts"
)

// DefaultCapacity is the nominal store size used for usage estimates (5MB).
const DefaultCapacity int64 = 5 * 1024 * 1024

const probeKey = "__chefconnect_probe__"
