package ledger

// Minimal ABIs for the three contracts the gateway drives
const (
	proofRegistryABI = `[
 {"type":"function","name":"registerProof","stateMutability":"nonpayable",
  "inputs":[{"name":"contributor","type":"address"},{"name":"proofHash","type":"bytes32"},{"name":"score","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"isProofUsed","stateMutability":"view",
  "inputs":[{"name":"proofHash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}
]`

	reputationScoreABI = `[
 {"type":"function","name":"increaseScore","stateMutability":"nonpayable",
  "inputs":[{"name":"contributor","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"getScore","stateMutability":"view",
  "inputs":[{"name":"contributor","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

	reputationBadgeABI = `[
 {"type":"function","name":"mintBadge","stateMutability":"nonpayable",
  "inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"uri","type":"string"},{"name":"tier","type":"uint8"}],"outputs":[]},
 {"type":"function","name":"balanceOf","stateMutability":"view",
  "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`
)
