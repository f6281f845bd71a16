package omnipool

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/galacticcouncil/intent-solver/internal/types"
)

// spotPricePrecision is the number of decimal places kept when dividing
// reserve ratios. Reserves are at most 128-bit so 40 places comfortably
// covers the meaningful range.
const spotPricePrecision = 40

func toU256(b types.Balance) (*uint256.Int, error) {
	if b == nil || b.Sign() < 0 {
		return nil, ErrOverflow
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrOverflow
	}
	return v, nil
}

func toBalance(v *uint256.Int) (types.Balance, error) {
	b := v.ToBig()
	if !types.FitsBalance(b) {
		return nil, ErrOverflow
	}
	return b, nil
}

// mulDiv256 computes a*b/c entirely in 256 bits with overflow and
// zero-divisor checks.
func mulDiv256(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, ErrDivisionByZero
	}
	prod, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return prod.Div(prod, c), nil
}

func add256(a, b *uint256.Int) (*uint256.Int, error) {
	sum, carry := new(uint256.Int).AddOverflow(a, b)
	if carry {
		return nil, ErrOverflow
	}
	return sum, nil
}

func amountWithoutFee(amount types.Balance, fee Fee) types.Balance {
	return fee.Complement().MulFloor(amount)
}

// feeAmountForBuy computes the asset fee charged on top of an exact
// output amount, rounded up so the pool never undercollects.
func feeAmountForBuy(fee Fee, amount types.Balance) types.Balance {
	if fee.IsZero() {
		return types.Zero()
	}
	if fee.IsOne() {
		return types.CopyBalance(amount)
	}
	numerator := new(big.Int).Mul(big.NewInt(int64(fee.Parts())), amount)
	denominator := big.NewInt(feeDenominator - int64(fee.Parts()))
	numerator.Quo(numerator, denominator)
	return numerator.Add(numerator, big.NewInt(1))
}

// extraHubMint computes the hub asset minted to back the part of the
// asset fee that stays in the pool: fee * (hubReserve + delta) * delta /
// hubReserve.
func extraHubMint(hubReserve, delta *uint256.Int, fee Fee) (types.Balance, error) {
	sum, err := add256(hubReserve, delta)
	if err != nil {
		return nil, err
	}
	v, err := mulDiv256(sum, delta, hubReserve)
	if err != nil {
		return nil, err
	}
	b, err := toBalance(v)
	if err != nil {
		return nil, err
	}
	return fee.MulFloor(b), nil
}

// CalculateSellStateChanges computes the delta set of selling amount of
// asset-in for asset-out through the hub asset. burnFee is the share of
// the protocol fee that is burned rather than redirected.
func CalculateSellStateChanges(
	assetIn, assetOut *AssetReserveState,
	amount types.Balance,
	assetFee, protocolFee, burnFee Fee,
) (*TradeStateChange, error) {
	inHub, err := toU256(assetIn.HubReserve)
	if err != nil {
		return nil, err
	}
	inReserve, err := toU256(assetIn.Reserve)
	if err != nil {
		return nil, err
	}
	inAmount, err := toU256(amount)
	if err != nil {
		return nil, err
	}

	den, err := add256(inReserve, inAmount)
	if err != nil {
		return nil, err
	}
	deltaHubIn256, err := mulDiv256(inAmount, inHub, den)
	if err != nil {
		return nil, err
	}
	deltaHubIn, err := toBalance(deltaHubIn256)
	if err != nil {
		return nil, err
	}

	protocolFeeAmount := protocolFee.MulFloor(deltaHubIn)
	dNet := new(big.Int).Sub(deltaHubIn, protocolFeeAmount)

	outReserve, err := toU256(assetOut.Reserve)
	if err != nil {
		return nil, err
	}
	outHub, err := toU256(assetOut.HubReserve)
	if err != nil {
		return nil, err
	}
	dNet256, err := toU256(dNet)
	if err != nil {
		return nil, err
	}

	outDen, err := add256(outHub, dNet256)
	if err != nil {
		return nil, err
	}
	amountOut256, err := mulDiv256(outReserve, dNet256, outDen)
	if err != nil {
		return nil, err
	}
	amountOut, err := toBalance(amountOut256)
	if err != nil {
		return nil, err
	}

	deltaReserveOut := amountWithoutFee(amountOut, assetFee)
	assetFeeAmount := new(big.Int).Sub(amountOut, deltaReserveOut)

	deltaOutMint, err := extraHubMint(outHub, dNet256, assetFee)
	if err != nil {
		return nil, err
	}

	return &TradeStateChange{
		AssetIn: AssetStateChange{
			DeltaReserve:    Increase(types.CopyBalance(amount)),
			DeltaHubReserve: Decrease(deltaHubIn),
		},
		AssetOut: AssetStateChange{
			DeltaReserve:    Decrease(deltaReserveOut),
			DeltaHubReserve: Increase(dNet),
			ExtraHubReserve: deltaOutMint,
		},
		Fee: TradeFee{
			AssetFee:          assetFeeAmount,
			ProtocolFee:       protocolFeeAmount,
			BurnedProtocolFee: burnFee.MulFloor(protocolFeeAmount),
		},
	}, nil
}

// CalculateSellHubStateChanges computes the delta set of selling hub asset
// directly for a pool asset.
func CalculateSellHubStateChanges(
	assetOut *AssetReserveState,
	hubAmount types.Balance,
	assetFee Fee,
) (*HubTradeStateChange, error) {
	outReserve, err := toU256(assetOut.Reserve)
	if err != nil {
		return nil, err
	}
	outHub, err := toU256(assetOut.HubReserve)
	if err != nil {
		return nil, err
	}
	hub256, err := toU256(hubAmount)
	if err != nil {
		return nil, err
	}

	den, err := add256(outHub, hub256)
	if err != nil {
		return nil, err
	}
	amountOut256, err := mulDiv256(outReserve, hub256, den)
	if err != nil {
		return nil, err
	}
	amountOut, err := toBalance(amountOut256)
	if err != nil {
		return nil, err
	}

	deltaReserveOut := amountWithoutFee(amountOut, assetFee)
	assetFeeAmount := new(big.Int).Sub(amountOut, deltaReserveOut)

	mint, err := extraHubMint(outHub, hub256, assetFee)
	if err != nil {
		return nil, err
	}

	fee := zeroTradeFee()
	fee.AssetFee = assetFeeAmount
	return &HubTradeStateChange{
		Asset: AssetStateChange{
			DeltaReserve:    Decrease(deltaReserveOut),
			DeltaHubReserve: Increase(types.CopyBalance(hubAmount)),
			ExtraHubReserve: mint,
		},
		Fee: fee,
	}, nil
}

// CalculateBuyForHubAssetStateChanges computes the delta set of buying an
// exact amount of a pool asset with hub asset.
func CalculateBuyForHubAssetStateChanges(
	assetOut *AssetReserveState,
	assetOutAmount types.Balance,
	assetFee Fee,
) (*HubTradeStateChange, error) {
	reserveNoFee := amountWithoutFee(assetOut.Reserve, assetFee)
	if reserveNoFee.Cmp(assetOutAmount) <= 0 {
		return nil, ErrInsufficientReserve
	}
	hubDenominator := new(big.Int).Sub(reserveNoFee, assetOutAmount)

	outHub, err := toU256(assetOut.HubReserve)
	if err != nil {
		return nil, err
	}
	amount256, err := toU256(assetOutAmount)
	if err != nil {
		return nil, err
	}
	hubDen256, err := toU256(hubDenominator)
	if err != nil {
		return nil, err
	}

	dNet256, err := mulDiv256(outHub, amount256, hubDen256)
	if err != nil {
		return nil, err
	}
	dNet, err := toBalance(dNet256)
	if err != nil {
		return nil, err
	}
	dNet.Add(dNet, big.NewInt(1))
	dNet256, err = toU256(dNet)
	if err != nil {
		return nil, err
	}

	// Hub minted against the retained asset fee, derived from the exact
	// output rather than the hub delta.
	hubPlusDelta, err := add256(outHub, dNet256)
	if err != nil {
		return nil, err
	}
	mintNumerator, overflow := new(uint256.Int).MulOverflow(hubPlusDelta, amount256)
	if overflow {
		return nil, ErrOverflow
	}
	mintBase, err := toBalance(mintNumerator)
	if err != nil {
		return nil, err
	}
	mint := assetFee.MulFloor(mintBase)
	mint.Quo(mint, hubDenominator)

	fee := zeroTradeFee()
	fee.AssetFee = feeAmountForBuy(assetFee, assetOutAmount)
	return &HubTradeStateChange{
		Asset: AssetStateChange{
			DeltaReserve:    Decrease(types.CopyBalance(assetOutAmount)),
			DeltaHubReserve: Increase(dNet),
			ExtraHubReserve: mint,
		},
		Fee: fee,
	}, nil
}

// CalculateBuyStateChanges computes the delta set of buying an exact
// amount of asset-out with asset-in.
func CalculateBuyStateChanges(
	assetIn, assetOut *AssetReserveState,
	amount types.Balance,
	assetFee, protocolFee, burnFee Fee,
) (*TradeStateChange, error) {
	reserveNoFee := amountWithoutFee(assetOut.Reserve, assetFee)
	if reserveNoFee.Cmp(amount) <= 0 {
		return nil, ErrInsufficientReserve
	}

	outHub, err := toU256(assetOut.HubReserve)
	if err != nil {
		return nil, err
	}
	amount256, err := toU256(amount)
	if err != nil {
		return nil, err
	}
	outDen256, err := toU256(new(big.Int).Sub(reserveNoFee, amount))
	if err != nil {
		return nil, err
	}

	dNet256, err := mulDiv256(outHub, amount256, outDen256)
	if err != nil {
		return nil, err
	}
	dNet, err := toBalance(dNet256)
	if err != nil {
		return nil, err
	}
	dNet.Add(dNet, big.NewInt(1))

	// Gross up by the protocol fee to find the hub amount leaving the
	// sell-side pool.
	if protocolFee.IsOne() {
		return nil, ErrDivisionByZero
	}
	deltaHubIn := new(big.Int).Mul(dNet, big.NewInt(feeDenominator))
	deltaHubIn.Quo(deltaHubIn, big.NewInt(feeDenominator-int64(protocolFee.Parts())))

	if deltaHubIn.Cmp(assetIn.HubReserve) >= 0 {
		return nil, ErrInsufficientReserve
	}

	inHub, err := toU256(assetIn.HubReserve)
	if err != nil {
		return nil, err
	}
	inReserve, err := toU256(assetIn.Reserve)
	if err != nil {
		return nil, err
	}
	deltaHubIn256, err := toU256(deltaHubIn)
	if err != nil {
		return nil, err
	}

	inDen := new(uint256.Int).Sub(inHub, deltaHubIn256)
	deltaReserveIn256, err := mulDiv256(inReserve, deltaHubIn256, inDen)
	if err != nil {
		return nil, err
	}
	deltaReserveIn, err := toBalance(deltaReserveIn256)
	if err != nil {
		return nil, err
	}
	deltaReserveIn.Add(deltaReserveIn, big.NewInt(1))

	protocolFeeAmount := protocolFee.MulFloor(deltaHubIn)
	dNetForward := new(big.Int).Sub(deltaHubIn, protocolFeeAmount)
	dNetForward256, err := toU256(dNetForward)
	if err != nil {
		return nil, err
	}

	mint, err := extraHubMint(outHub, dNetForward256, assetFee)
	if err != nil {
		return nil, err
	}

	return &TradeStateChange{
		AssetIn: AssetStateChange{
			DeltaReserve:    Increase(deltaReserveIn),
			DeltaHubReserve: Decrease(deltaHubIn),
		},
		AssetOut: AssetStateChange{
			DeltaReserve:    Decrease(types.CopyBalance(amount)),
			DeltaHubReserve: Increase(dNetForward),
			ExtraHubReserve: mint,
		},
		Fee: TradeFee{
			AssetFee:          feeAmountForBuy(assetFee, amount),
			ProtocolFee:       protocolFeeAmount,
			BurnedProtocolFee: burnFee.MulFloor(protocolFeeAmount),
		},
	}, nil
}

// CalculateAddLiquidityStateChanges computes the delta set of adding
// amount of the asset to the pool.
func CalculateAddLiquidityStateChanges(
	assetState *AssetReserveState,
	amount types.Balance,
) (*LiquidityStateChange, error) {
	if assetState.Reserve.Sign() == 0 {
		return nil, ErrDivisionByZero
	}

	deltaHubReserve := new(big.Int).Mul(amount, assetState.HubReserve)
	deltaHubReserve.Quo(deltaHubReserve, assetState.Reserve)
	if !types.FitsBalance(deltaHubReserve) {
		return nil, ErrOverflow
	}

	deltaShares := new(big.Int).Mul(assetState.Shares, amount)
	deltaShares.Quo(deltaShares, assetState.Reserve)
	if !types.FitsBalance(deltaShares) {
		return nil, ErrOverflow
	}

	return &LiquidityStateChange{
		Asset: AssetStateChange{
			DeltaReserve:    Increase(types.CopyBalance(amount)),
			DeltaHubReserve: Increase(deltaHubReserve),
			DeltaShares:     Increase(deltaShares),
		},
		LPHubAmount: types.Zero(),
	}, nil
}

// CalculateWithdrawalFee derives the dynamic withdrawal fee from the
// divergence between spot and oracle price, clamped between minFee and
// 100%.
func CalculateWithdrawalFee(spotPrice, oraclePrice decimal.Decimal, minFee Fee) decimal.Decimal {
	min := minFee.Decimal()
	if oraclePrice.IsZero() {
		return min
	}
	diff := spotPrice.Sub(oraclePrice).Abs()
	fee := diff.DivRound(oraclePrice, spotPricePrecision)
	one := decimal.NewFromInt(1)
	if fee.LessThan(min) {
		return min
	}
	if fee.GreaterThan(one) {
		return one
	}
	return fee
}

// CalculateRemoveLiquidityStateChanges computes the delta set of removing
// sharesRemoved from the asset against the given position, applying the
// already-derived withdrawal fee.
func CalculateRemoveLiquidityStateChanges(
	assetState *AssetReserveState,
	sharesRemoved types.Balance,
	position *Position,
	withdrawalFee decimal.Decimal,
) (*LiquidityStateChange, error) {
	if assetState.Shares.Sign() == 0 || position.Shares.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	currentPrice, ok := assetState.Price()
	if !ok {
		return nil, ErrDivisionByZero
	}
	if position.Price.D.Sign() == 0 {
		return nil, ErrDivisionByZero
	}

	// pXr = positionPrice * reserve, floored then bumped by one to
	// round against the withdrawing LP.
	pXr := new(big.Int).Mul(position.Price.N, assetState.Reserve)
	pXr.Quo(pXr, position.Price.D)
	pXr.Add(pXr, big.NewInt(1))

	priceCmp := currentPrice.Cmp(position.Price)

	// Shares redirected to the protocol when withdrawing below the
	// position price.
	deltaB := new(big.Int)
	if priceCmp < 0 {
		numer := new(big.Int).Sub(pXr, assetState.HubReserve)
		if numer.Sign() < 0 {
			return nil, ErrOverflow
		}
		numer.Mul(numer, sharesRemoved)
		denom := new(big.Int).Add(pXr, assetState.HubReserve)
		deltaB.Quo(numer, denom)
		deltaB.Add(deltaB, big.NewInt(1))
	}

	deltaShares := new(big.Int).Sub(sharesRemoved, deltaB)
	if deltaShares.Sign() < 0 {
		return nil, ErrOverflow
	}

	deltaReserve := new(big.Int).Mul(assetState.Reserve, deltaShares)
	deltaReserve.Quo(deltaReserve, assetState.Shares)

	deltaHubReserve := new(big.Int).Mul(deltaReserve, assetState.HubReserve)
	deltaHubReserve.Quo(deltaHubReserve, assetState.Reserve)

	deltaPositionAmount := new(big.Int).Mul(sharesRemoved, position.Amount)
	deltaPositionAmount.Quo(deltaPositionAmount, position.Shares)

	// Hub asset paid out to the LP when withdrawing above the position
	// price.
	hubTransferred := new(big.Int)
	if priceCmp > 0 {
		sub := new(big.Int).Sub(assetState.HubReserve, pXr)
		if sub.Sign() < 0 {
			return nil, ErrOverflow
		}
		sum := new(big.Int).Add(assetState.HubReserve, pXr)
		hubTransferred.Mul(assetState.HubReserve, sub)
		hubTransferred.Quo(hubTransferred, sum)
		hubTransferred.Mul(hubTransferred, deltaShares)
		hubTransferred.Quo(hubTransferred, assetState.Shares)
	}

	feeComplement := decimal.NewFromInt(1).Sub(withdrawalFee)
	deltaReserve = applyDecimalFloor(feeComplement, deltaReserve)
	deltaHubReserve = applyDecimalFloor(feeComplement, deltaHubReserve)
	hubTransferred = applyDecimalFloor(feeComplement, hubTransferred)

	return &LiquidityStateChange{
		Asset: AssetStateChange{
			DeltaReserve:        Decrease(deltaReserve),
			DeltaHubReserve:     Decrease(deltaHubReserve),
			DeltaShares:         Decrease(deltaShares),
			DeltaProtocolShares: Increase(deltaB),
		},
		LPHubAmount:          hubTransferred,
		DeltaPositionReserve: Decrease(deltaPositionAmount),
		DeltaPositionShares:  Decrease(types.CopyBalance(sharesRemoved)),
	}, nil
}

func applyDecimalFloor(factor decimal.Decimal, amount *big.Int) *big.Int {
	return decimal.NewFromBigInt(amount, 0).Mul(factor).Floor().BigInt()
}

// CalculateSpotPrice returns the fee-less price of assetA denominated in
// assetB (assetB per unit of assetA).
func CalculateSpotPrice(assetA, assetB *AssetReserveState) (decimal.Decimal, error) {
	if assetA.Reserve.Sign() == 0 || assetB.HubReserve.Sign() == 0 {
		return decimal.Decimal{}, ErrDivisionByZero
	}
	priceA := decimal.NewFromBigInt(assetA.HubReserve, 0).
		DivRound(decimal.NewFromBigInt(assetA.Reserve, 0), spotPricePrecision)
	priceB := decimal.NewFromBigInt(assetB.Reserve, 0).
		DivRound(decimal.NewFromBigInt(assetB.HubReserve, 0), spotPricePrecision)
	return priceA.Mul(priceB), nil
}

// CalculateSpotPriceWithFee is CalculateSpotPrice adjusted downward by
// both the protocol fee and the asset fee, reflecting the amount actually
// received after fee deduction.
func CalculateSpotPriceWithFee(assetA, assetB *AssetReserveState, protocolFee, assetFee Fee) (decimal.Decimal, error) {
	price, err := CalculateSpotPrice(assetA, assetB)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return price.Mul(protocolFee.Complement().Decimal()).Mul(assetFee.Complement().Decimal()), nil
}

// CalculateTVL values the hub reserve in stable-asset terms.
func CalculateTVL(hubReserve types.Balance, stableReserve, stableHubReserve types.Balance) (types.Balance, error) {
	if stableHubReserve.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	tvl := new(big.Int).Mul(hubReserve, stableReserve)
	tvl.Quo(tvl, stableHubReserve)
	if !types.FitsBalance(tvl) {
		return nil, ErrOverflow
	}
	return tvl, nil
}

// weightScale is the scale of asset weight caps: a cap is a fraction of
// the total hub reserve expressed in 1e18 parts.
var weightScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// CalculateCapDifference returns how much more of the asset can be added
// before its hub-reserve weight reaches assetCap (1e18-scaled fraction).
func CalculateCapDifference(asset *AssetReserveState, assetCap *big.Int, totalHubReserve types.Balance) (types.Balance, error) {
	maxAllowed := new(big.Int).Mul(assetCap, totalHubReserve)
	maxAllowed.Quo(maxAllowed, weightScale)
	if maxAllowed.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	if asset.HubReserve.Cmp(maxAllowed) > 0 {
		return types.Zero(), nil
	}
	diff := new(big.Int).Sub(maxAllowed, asset.HubReserve)
	diff.Mul(diff, asset.Reserve)
	diff.Quo(diff, maxAllowed)
	if !types.FitsBalance(diff) {
		return nil, ErrOverflow
	}
	return diff, nil
}

// CalculateTVLCapDifference returns how much more of the asset can be
// added before pool TVL (valued through the stable asset) reaches tvlCap.
func CalculateTVLCapDifference(
	asset, stableAsset *AssetReserveState,
	tvlCap, totalHubReserve types.Balance,
) (types.Balance, error) {
	if stableAsset.Reserve.Sign() == 0 || asset.HubReserve.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	maxHubReserve := new(big.Int).Mul(tvlCap, stableAsset.HubReserve)
	maxHubReserve.Quo(maxHubReserve, stableAsset.Reserve)

	if maxHubReserve.Cmp(totalHubReserve) < 0 {
		return types.Zero(), nil
	}

	deltaQ := new(big.Int).Sub(maxHubReserve, totalHubReserve)
	amount := deltaQ.Mul(deltaQ, asset.Reserve)
	amount.Quo(amount, asset.HubReserve)
	if !types.FitsBalance(amount) {
		return nil, ErrOverflow
	}
	return amount, nil
}

// VerifyAssetCap reports whether adding hubAmount keeps the asset's
// hub-reserve weight at or below assetCap (1e18-scaled fraction).
func VerifyAssetCap(
	asset *AssetReserveState,
	assetCap *big.Int,
	hubAmount, totalHubReserve types.Balance,
) (bool, error) {
	newHub := new(big.Int).Add(asset.HubReserve, hubAmount)
	newTotal := new(big.Int).Add(totalHubReserve, hubAmount)
	if newTotal.Sign() == 0 {
		return false, ErrDivisionByZero
	}
	// weight <= cap  <=>  newHub * 1e18 <= cap * newTotal
	left := new(big.Int).Mul(newHub, weightScale)
	right := new(big.Int).Mul(assetCap, newTotal)
	return left.Cmp(right) <= 0, nil
}
