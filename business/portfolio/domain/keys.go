package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKey indexes by asset.
type AssetKey struct {
	Asset string
}

// ChainAssetKey indexes by chain and asset.
type ChainAssetKey struct {
	Chain string
	Asset string
}

// UserKey indexes by user.
type UserKey struct {
	User common.Address
}

// AssetUserKey indexes by asset and user.
type AssetUserKey struct {
	Asset string
	User  common.Address
}

// ChainUserKey indexes by chain and user.
type ChainUserKey struct {
	Chain string
	User  common.Address
}

// ChainAssetUserKey indexes by chain, asset and user.
type ChainAssetUserKey struct {
	Chain string
	Asset string
	User  common.Address
}

// PositionKey identifies one user's supply in one pool. It is unique
// within a pass.
type PositionKey struct {
	Chain      string
	Asset      string
	Borrowable common.Address
	User       common.Address
}

func (k PositionKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Chain, k.Asset, k.Borrowable.Hex(), k.User.Hex())
}

// ChainAsset drops the pool from the key.
func (k PositionKey) ChainAsset() ChainAssetKey {
	return ChainAssetKey{Chain: k.Chain, Asset: k.Asset}
}

// AssetUser drops the chain and pool from the key.
func (k PositionKey) AssetUser() AssetUserKey {
	return AssetUserKey{Asset: k.Asset, User: k.User}
}

// ChainAssetUser drops the pool from the key.
func (k PositionKey) ChainAssetUser() ChainAssetUserKey {
	return ChainAssetUserKey{Chain: k.Chain, Asset: k.Asset, User: k.User}
}
