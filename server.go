package main

import (
	"log"
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/joho/godotenv"

	"github.com/kdelia12/medblocks/contracts"
)

// RunAsService runs the chaincode as an external service. CHAINCODE_ID and
// CHAINCODE_SERVER_ADDRESS come from the environment; a local .env file is
// honored for development setups.
func RunAsService() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cc, err := contractapi.NewChaincode(
		&contracts.RoleRegistryContract{},
		&contracts.BatchLedgerContract{},
		&contracts.CircuitBreakerContract{},
	)
	if err != nil {
		log.Fatalf("Error creating medicine supply chain chaincode: %v", err)
	}

	server := &shim.ChaincodeServer{
		CCID:    os.Getenv("CHAINCODE_ID"),
		Address: os.Getenv("CHAINCODE_SERVER_ADDRESS"),
		CC:      cc,
		TLSProps: shim.TLSProperties{
			Disabled: true,
		},
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Error starting medicine supply chain chaincode server: %v", err)
	}
}
