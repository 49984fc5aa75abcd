package models

// SettlementStatus summarises the settlement for status displays.
type SettlementStatus struct {
	Time        GameTime           `json:"time"`
	Population  int                `json:"population"`
	Idle        int                `json:"idle"`
	FoodItem    string             `json:"food_item"`
	FoodStock   int                `json:"food_stock"`
	DailyDemand int                `json:"daily_demand"`
	LastMeal    GameDate           `json:"last_meal"`
	Hungry      []int              `json:"hungry"`
	Tasks       map[TaskStatus]int `json:"tasks"`
	AutoAssign  bool               `json:"auto_assign"`
}
