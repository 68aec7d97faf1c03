package domain

// ClusterPatch changes selected fields of a cluster.
type ClusterPatch struct {
	Title  *string  `json:"title,omitempty"`
	Color  *string  `json:"color,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// NewCluster asks for an empty cluster centred in the caller's viewport.
// The viewport maps canvas to screen as screen = canvas*Scale + Offset.
type NewCluster struct {
	Title      string  `json:"title"`
	OffsetX    float64 `json:"offset_x"`
	OffsetY    float64 `json:"offset_y"`
	Scale      float64 `json:"scale"`
	ViewWidth  float64 `json:"view_width"`
	ViewHeight float64 `json:"view_height"`
}

type ItemMove struct {
	ItemID        string `json:"item_id"`
	FromClusterID string `json:"from_cluster_id"`
	ToClusterID   string `json:"to_cluster_id"`
	BeforeItemID  string `json:"before_item_id,omitempty"`
}
