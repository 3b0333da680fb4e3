package entities

// CommerceBuy is the typed buy request the narrator may propose: one item
// and the price quoted in fiction. The gate still checks the catalog and
// the character's purse.
type CommerceBuy struct {
	Item  string `json:"item"`
	Price int32  `json:"price"`
}

// ProposedStateChanges is the structured record the narrator returns with
// its prose. It is untrusted input: the economy gate inspects it field by
// field and decides what actually happens.
type ProposedStateChanges struct {
	HPDelta         int32                  `json:"hp_delta"`
	GoldDelta       int32                  `json:"gold_delta"`
	XPDelta         int32                  `json:"xp_delta"`
	InventoryAdd    []string               `json:"inventory_add,omitempty"`
	InventoryRemove []string               `json:"inventory_remove,omitempty"`
	Location        string                 `json:"location,omitempty"`
	WorldState      map[string]interface{} `json:"world_state,omitempty"`
	ItemUsed        string                 `json:"item_used,omitempty"`
	CommerceSell    string                 `json:"commerce_sell,omitempty"`
	CommerceBuy     *CommerceBuy           `json:"commerce_buy,omitempty"`
}

// ExecutedChanges is what the gate actually did, after validation. Blocked
// fields record rejected grant attempts for observability.
type ExecutedChanges struct {
	HPDelta        int32    `json:"hp_delta"`
	GoldDelta      int32    `json:"gold_delta"`
	XPDelta        int32    `json:"xp_delta"`
	ItemsAdded     []string `json:"items_added,omitempty"`
	ItemsRemoved   []string `json:"items_removed,omitempty"`
	Location       string   `json:"location,omitempty"`
	LevelsGained   int32    `json:"levels_gained,omitempty"`
	BlockedGold    int32    `json:"blocked_gold,omitempty"`
	BlockedItems   []string `json:"blocked_items,omitempty"`
	CommerceSell   string   `json:"commerce_sell,omitempty"`
	CommerceBuy    string   `json:"commerce_buy,omitempty"`
	CommercePrice  int32    `json:"commerce_price,omitempty"`
	CommerceDenied bool     `json:"commerce_denied,omitempty"`
}
