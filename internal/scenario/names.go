package scenario

// Registry names. They are also the names printed on the Deployed lines.
const (
	FundTemplate         = "BetokenFundTemplate"
	Logic                = "BetokenLogic"
	Logic2               = "BetokenLogic2"
	Logic3               = "BetokenLogic3"
	MiniMeFactory        = "MiniMeTokenFactory"
	PeakToken            = "PeakToken"
	PeakOracle           = "PeakUniswapOracle"
	PeakReferralToken    = "PeakReferralToken"
	PeakStaking          = "PeakStaking"
	PeakReward           = "PeakReward"
	BetokenFactory       = "BetokenFactory"
	ShortCERC20Order     = "ShortCERC20Order"
	ShortCEtherOrder     = "ShortCEtherOrder"
	LongCERC20Order      = "LongCERC20Order"
	LongCEtherOrder      = "LongCEtherOrder"
	CompoundOrderFactory = "CompoundOrderFactory"
	Fund                 = "BetokenFund"
	FundProxy            = "BetokenProxy"

	// Existing protocol handles on real networks.
	Dai                 = "DAI"
	Kyber               = "KyberNetwork"
	CompoundComptroller = "CompoundComptroller"
	CompoundOracle      = "CompoundPriceOracle"
	CompoundCDai        = "cDAI"
	CompoundCEther      = "cETH"
)

// Compiled artifact names.
const (
	ArtifactFund                 = "BetokenFund"
	ArtifactLogic                = "BetokenLogic"
	ArtifactLogic2               = "BetokenLogic2"
	ArtifactLogic3               = "BetokenLogic3"
	ArtifactMiniMeFactory        = "MiniMeTokenFactory"
	ArtifactMiniMeToken          = "MiniMeToken"
	ArtifactPeakToken            = "PeakToken"
	ArtifactTestToken            = "TestToken"
	ArtifactTestUniswapOracle    = "TestUniswapOracle"
	ArtifactPeakStaking          = "PeakStaking"
	ArtifactPeakReward           = "PeakReward"
	ArtifactBetokenFactory       = "BetokenFactory"
	ArtifactShortCERC20Order     = "ShortCERC20Order"
	ArtifactShortCEtherOrder     = "ShortCEtherOrder"
	ArtifactLongCERC20Order      = "LongCERC20Order"
	ArtifactLongCEtherOrder      = "LongCEtherOrder"
	ArtifactCompoundOrderFactory = "CompoundOrderFactory"
)

const (
	methodMint             = "mint"
	methodAddMinter        = "addMinter"
	methodInit             = "init"
	methodAddSigner        = "addSigner"
	methodRenounceSigner   = "renounceSigner"
	methodRenounceOwner    = "renounceOwnership"
	methodNewToken         = "newToken"
	methodCreateCloneToken = "createCloneToken"
	methodCreateFund       = "createFund"
	methodNextPhase        = "nextPhase"
	methodProxyAddr        = "proxyAddr"
)
