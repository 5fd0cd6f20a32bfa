package dbModel

type RefinedRecord struct {
	AssetCode     string `db:"asset_code"`
	TotalQuantity int64  `db:"total_quantity"`
	ReferenceDate string `db:"reference_date"`
}
