package event

type Type string

const (
	TokenMintedEvent      Type = "TokenMintedEvent"
	TokenTransferredEvent Type = "TokenTransferredEvent"
	ApprovalForAllEvent   Type = "ApprovalForAllEvent"
	ItemOfferedEvent      Type = "ItemOfferedEvent"
	ItemBoughtEvent       Type = "ItemBoughtEvent"
)
