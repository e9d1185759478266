// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package contract contains the ABI of the WeedCutterNFT contract as deployed
// by scripts/deploy.ts. The client normally loads the ABI from the
// deployment artifacts; this copy is the reference layout the bindings are
// written against.
package contract

// WeedCutterABI is the ABI of the WeedCutterNFT contract.
const WeedCutterABI = `[
	{
		"inputs": [],
		"name": "owner",
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_user", "type": "address"}],
		"name": "getUserWeapons",
		"outputs": [{"name": "", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_weaponId", "type": "uint256"}],
		"name": "getWeaponDetails",
		"outputs": [
			{"name": "id",               "type": "uint256"},
			{"name": "name",             "type": "string"},
			{"name": "rarity",           "type": "uint8"},
			{"name": "damageMultiplier", "type": "uint256"},
			{"name": "owner",            "type": "address"},
			{"name": "price",            "type": "uint256"},
			{"name": "forSale",          "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getWeaponsForSale",
		"outputs": [
			{
				"name": "",
				"type": "tuple[]",
				"components": [
					{"name": "id",               "type": "uint256"},
					{"name": "name",             "type": "string"},
					{"name": "rarity",           "type": "uint8"},
					{"name": "damageMultiplier", "type": "uint256"},
					{"name": "owner",            "type": "address"},
					{"name": "price",            "type": "uint256"},
					{"name": "forSale",          "type": "bool"}
				]
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getNextWeaponId",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_player", "type": "address"}],
		"name": "getPlayerStats",
		"outputs": [
			{"name": "score", "type": "uint256"},
			{"name": "coins", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "", "type": "address"}],
		"name": "playerNames",
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_count", "type": "uint256"}],
		"name": "getLeaderboard",
		"outputs": [
			{"name": "addresses", "type": "address[]"},
			{"name": "names",     "type": "string[]"},
			{"name": "scores",    "type": "uint256[]"},
			{"name": "ranks",     "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_player", "type": "address"}],
		"name": "getPlayerRank",
		"outputs": [
			{"name": "rank",  "type": "uint256"},
			{"name": "total", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getNextCaseId",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_caseId", "type": "uint256"}],
		"name": "getCaseDetails",
		"outputs": [
			{"name": "name",      "type": "string"},
			{"name": "price",     "type": "uint256"},
			{"name": "coinPrice", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_user", "type": "address"}],
		"name": "getAllUserCaseInventory",
		"outputs": [
			{"name": "caseIds", "type": "uint256[]"},
			{"name": "amounts", "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_offerId", "type": "uint256"}],
		"name": "getTradeOffer",
		"outputs": [
			{"name": "offerId",   "type": "uint256"},
			{"name": "weaponId",  "type": "uint256"},
			{"name": "seller",    "type": "address"},
			{"name": "buyer",     "type": "address"},
			{"name": "price",     "type": "uint256"},
			{"name": "active",    "type": "bool"},
			{"name": "createdAt", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_user", "type": "address"}],
		"name": "getUserActiveOffers",
		"outputs": [
			{
				"name": "",
				"type": "tuple[]",
				"components": [
					{"name": "offerId",   "type": "uint256"},
					{"name": "weaponId",  "type": "uint256"},
					{"name": "seller",    "type": "address"},
					{"name": "buyer",     "type": "address"},
					{"name": "price",     "type": "uint256"},
					{"name": "active",    "type": "bool"},
					{"name": "createdAt", "type": "uint256"}
				]
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_user", "type": "address"}],
		"name": "getUserReceivedActiveOffers",
		"outputs": [
			{
				"name": "",
				"type": "tuple[]",
				"components": [
					{"name": "offerId",   "type": "uint256"},
					{"name": "weaponId",  "type": "uint256"},
					{"name": "seller",    "type": "address"},
					{"name": "buyer",     "type": "address"},
					{"name": "price",     "type": "uint256"},
					{"name": "active",    "type": "bool"},
					{"name": "createdAt", "type": "uint256"}
				]
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_points", "type": "uint256"}],
		"name": "recordWeedCut",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "_to",               "type": "address"},
			{"name": "_name",             "type": "string"},
			{"name": "_rarity",           "type": "uint8"},
			{"name": "_damageMultiplier", "type": "uint256"}
		],
		"name": "mintWeapon",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "_weaponId", "type": "uint256"},
			{"name": "_price",    "type": "uint256"}
		],
		"name": "listWeaponForSale",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_weaponId", "type": "uint256"}],
		"name": "purchaseWeapon",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_caseId", "type": "uint256"}],
		"name": "openCaseWithETH",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_caseId", "type": "uint256"}],
		"name": "openCaseWithCoins",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "_caseId", "type": "uint256"},
			{"name": "_amount", "type": "uint256"}
		],
		"name": "purchaseCase",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_caseId", "type": "uint256"}],
		"name": "openCaseFromInventory",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_name", "type": "string"}],
		"name": "setPlayerName",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "_weaponId", "type": "uint256"},
			{"name": "_buyer",    "type": "address"},
			{"name": "_price",    "type": "uint256"}
		],
		"name": "createTradeOffer",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_offerId", "type": "uint256"}],
		"name": "acceptTradeOffer",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_offerId", "type": "uint256"}],
		"name": "cancelTradeOffer",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true,  "name": "weaponId", "type": "uint256"},
			{"indexed": true,  "name": "owner",    "type": "address"},
			{"indexed": false, "name": "name",     "type": "string"},
			{"indexed": false, "name": "rarity",   "type": "uint8"}
		],
		"name": "WeaponMinted",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true,  "name": "player",   "type": "address"},
			{"indexed": true,  "name": "caseId",   "type": "uint256"},
			{"indexed": false, "name": "weaponId", "type": "uint256"}
		],
		"name": "CaseOpened",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true,  "name": "offerId",  "type": "uint256"},
			{"indexed": true,  "name": "weaponId", "type": "uint256"},
			{"indexed": true,  "name": "seller",   "type": "address"},
			{"indexed": false, "name": "buyer",    "type": "address"},
			{"indexed": false, "name": "price",    "type": "uint256"}
		],
		"name": "TradeOfferCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true,  "name": "player",      "type": "address"},
			{"indexed": false, "name": "points",      "type": "uint256"},
			{"indexed": false, "name": "coinsEarned", "type": "uint256"}
		],
		"name": "WeedCut",
		"type": "event"
	}
]`
