package model

// Load is a freight load offered to carriers. Loads are read-only once the
// catalog has been loaded.
type Load struct {
	LoadID           string   `json:"load_id" yaml:"load_id" toml:"load_id" bson:"load_id"`
	Origin           string   `json:"origin" yaml:"origin" toml:"origin" bson:"origin"`
	Destination      string   `json:"destination" yaml:"destination" toml:"destination" bson:"destination"`
	PickupDatetime   string   `json:"pickup_datetime,omitempty" yaml:"pickup_datetime" toml:"pickup_datetime" bson:"pickup_datetime,omitempty"`
	DeliveryDatetime string   `json:"delivery_datetime,omitempty" yaml:"delivery_datetime" toml:"delivery_datetime" bson:"delivery_datetime,omitempty"`
	EquipmentType    string   `json:"equipment_type" yaml:"equipment_type" toml:"equipment_type" bson:"equipment_type"`
	LoadboardRate    float64  `json:"loadboard_rate" yaml:"loadboard_rate" toml:"loadboard_rate" bson:"loadboard_rate"`
	Notes            string   `json:"notes,omitempty" yaml:"notes" toml:"notes" bson:"notes,omitempty"`
	Weight           *float64 `json:"weight,omitempty" yaml:"weight" toml:"weight" bson:"weight,omitempty"`
	CommodityType    string   `json:"commodity_type,omitempty" yaml:"commodity_type" toml:"commodity_type" bson:"commodity_type,omitempty"`
	NumOfPieces      *int     `json:"num_of_pieces,omitempty" yaml:"num_of_pieces" toml:"num_of_pieces" bson:"num_of_pieces,omitempty"`
	Miles            *float64 `json:"miles,omitempty" yaml:"miles" toml:"miles" bson:"miles,omitempty"`
	Dimensions       string   `json:"dimensions,omitempty" yaml:"dimensions" toml:"dimensions" bson:"dimensions,omitempty"`
}

type LoadSearchRequest struct {
	CallID        string `json:"call_id,omitempty"`
	Origin        string `json:"origin,omitempty"`
	Destination   string `json:"destination,omitempty"`
	EquipmentType string `json:"equipment_type,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

type LoadSearchResponse struct {
	Matches []Load `json:"matches"`
}
