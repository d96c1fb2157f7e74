package elastic_cache

import (
	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"go.uber.org/zap"
)

func mergeRequests(cached Request, action RequestAction, e entity.Entity) entity.Entity {
	switch result := cached.Entity.(type) {
	case entity.Transaction:
		return result

	case entity.Token:
		if action == NftTransfer {
			result.Owner = e.(entity.Token).Owner
		}
		return result

	case entity.Listing:
		if action == ListingSold {
			sold := e.(entity.Listing)
			result.Sold = sold.Sold
			result.Buyer = sold.Buyer
		}
		return result
	}

	zap.L().With(zap.String("slug", e.Slug()), zap.String("action", string(action))).
		Warn("ElasticCache: No merge for request, replacing")
	return e
}
