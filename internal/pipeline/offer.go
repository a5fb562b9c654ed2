package pipeline

import (
	"tender/internal"
	"tender/internal/util"
)

const inStockLabel = "in stock"

// Field priorities below mirror known upstream inconsistencies; keep the order.
var (
	warehouseKeys    = []string{"officeName", "stockName", "warehouseName", "storageName", "deliveryOffice", "supplierDescription"}
	priceKeys        = []string{"price", "priceOut", "priceInSiteCurrency"}
	availabilityKeys = []string{"availability", "rest", "qty"}
)

// ExtractRow projects one raw offer onto the report row of its request.
func ExtractRow(offer internal.Offer, req internal.TenderRequest, dir internal.Directory) internal.ExtractedRow {
	delivery := util.StripMarkup(offer.Str("deadlineReplace"))
	if delivery == "" {
		delivery = inStockLabel
	}

	supplierName := ""
	if id, ok := offer.Int("distributorId"); ok {
		supplierName = dir.Name(id)
	}

	return internal.ExtractedRow{
		Brand:        util.FirstNonEmpty(offer.First("brandFix", "brand"), req.Brand),
		Article:      util.FirstNonEmpty(offer.First("numberFix", "number"), req.Article),
		Description:  offer.Str("description"),
		Availability: offer.First(availabilityKeys...),
		Price:        offer.First(priceKeys...),
		SupplierCode: offer.First("distributorCode", "distributorId"),
		SupplierName: supplierName,
		Warehouse:    util.StripMarkup(offer.First(warehouseKeys...)),
		DeliveryTime: delivery,

		RequestedBrand:    req.Brand,
		RequestedArticle:  req.Article,
		RequestedQuantity: req.Quantity,
	}
}
