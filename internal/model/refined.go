package model

// RefinedRecord is one asset of the index composition after normalization.
type RefinedRecord struct {
	AssetCode     string
	TotalQuantity int64
	ReferenceDate string
}

// ReferenceDateLayout is the ISO calendar date used for partitions and the catalog.
const ReferenceDateLayout = "2006-01-02"
