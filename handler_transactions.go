package main

import (
	"net/http"
	"strconv"
)

const transactionQuery = `SELECT t.id, t.product_id, t.staff_id, t.type, t.quantity,
	COALESCE(t.reference, ''), COALESCE(t.notes, ''), t.created_at, p.sku, s.name
	FROM inventory_transactions t
	JOIN products p ON t.product_id = p.id
	JOIN staff s ON t.staff_id = s.id`

func handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	offset := (page - 1) * limit

	where := " WHERE 1=1"
	args := []interface{}{}
	if pid := r.URL.Query().Get("product_id"); pid != "" {
		where += " AND t.product_id = ?"
		args = append(args, pid)
	}
	if sid := r.URL.Query().Get("staff_id"); sid != "" {
		where += " AND t.staff_id = ?"
		args = append(args, sid)
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		where += " AND t.type = ?"
		args = append(args, typ)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		where += " AND t.created_at >= ?"
		args = append(args, from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		where += " AND t.created_at <= ?"
		args = append(args, to+" 23:59:59")
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM inventory_transactions t"+where, args...).Scan(&total); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	query := transactionQuery + where + " ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var txns []StockTransaction
	for rows.Next() {
		var t StockTransaction
		rows.Scan(&t.ID, &t.ProductID, &t.StaffID, &t.Type, &t.Quantity,
			&t.Reference, &t.Notes, &t.CreatedAt, &t.SKU, &t.StaffName)
		txns = append(txns, t)
	}
	if txns == nil { txns = []StockTransaction{} }
	jsonRespMeta(w, txns, total, page, limit)
}

func handleGetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	txnID, err := strconv.Atoi(id)
	if err != nil { jsonErr(w, "invalid transaction id", 400); return }

	var t StockTransaction
	err = db.QueryRow(transactionQuery+" WHERE t.id = ?", txnID).
		Scan(&t.ID, &t.ProductID, &t.StaffID, &t.Type, &t.Quantity,
			&t.Reference, &t.Notes, &t.CreatedAt, &t.SKU, &t.StaffName)
	if err != nil { jsonErr(w, "transaction not found", 404); return }
	jsonResp(w, t)
}
