package main

import (
	"log"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/kdelia12/medblocks/contracts"
)

func main() {
	// External chaincode service mode is selected by the environment.
	if os.Getenv("CHAINCODE_SERVER_ADDRESS") != "" {
		RunAsService()
		return
	}

	chaincode, err := contractapi.NewChaincode(
		&contracts.RoleRegistryContract{},
		&contracts.BatchLedgerContract{},
		&contracts.CircuitBreakerContract{},
	)
	if err != nil {
		log.Fatalf("Error creating medicine supply chain chaincode: %v", err)
	}
	if err := chaincode.Start(); err != nil {
		log.Fatalf("Error starting medicine supply chain chaincode: %v", err)
	}
}
