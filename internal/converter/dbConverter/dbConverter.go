package dbConverter

import (
	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/KotFed0t/index_composition_etl/internal/model/dbModel"
)

func ConvertRefinedRecord(dbRecord dbModel.RefinedRecord) model.RefinedRecord {
	return model.RefinedRecord{
		AssetCode:     dbRecord.AssetCode,
		TotalQuantity: dbRecord.TotalQuantity,
		ReferenceDate: dbRecord.ReferenceDate,
	}
}

func ConvertToDbRefinedRecords(records []model.RefinedRecord) []dbModel.RefinedRecord {
	res := make([]dbModel.RefinedRecord, 0, len(records))
	for _, r := range records {
		res = append(res, dbModel.RefinedRecord{
			AssetCode:     r.AssetCode,
			TotalQuantity: r.TotalQuantity,
			ReferenceDate: r.ReferenceDate,
		})
	}
	return res
}
