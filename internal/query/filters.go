package query

import (
	"github.com/holiman/uint256"

	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// AggregatedKey matches every transaction carrying a keyshare-aggregated event.
func AggregatedKey() (string, error) {
	return New(EventTx).Exists(types.EventTypeKeyshareAggregated).String()
}

// TransferFrom matches transfers sent by address above the threshold.
func TransferFrom(address string, threshold *uint256.Int) (string, error) {
	return transfer(types.AttrSender, address, threshold)
}

// TransferTo matches transfers received by address above the threshold.
func TransferTo(address string, threshold *uint256.Int) (string, error) {
	return transfer(types.AttrRecipient, address, threshold)
}

func transfer(role, address string, threshold *uint256.Int) (string, error) {
	return New(EventTx).
		Equal(types.EventTypeTransfer+"."+role, address).
		GreaterThan(types.EventTypeTransfer+"."+types.AttrAmount, threshold).
		String()
}

// NewBlocks matches every new block.
func NewBlocks() (string, error) {
	return New(EventNewBlock).String()
}

// EncryptedTxExecuted matches the block that executes one specific
// encrypted transaction.
func EncryptedTxExecuted(targetHeight, creator, index string) (string, error) {
	prefix := types.EventTypeEncryptedTxExec + "."
	return New(EventNewBlock).
		Equal(prefix+types.AttrTargetHeight, targetHeight).
		Equal(prefix+types.AttrCreator, creator).
		Equal(prefix+types.AttrIndex, index).
		String()
}
