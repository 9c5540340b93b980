// Package hasher はbcryptによるパスワードハッシュ化と検証を提供する。
// CPUバウンドなbcrypt計算はリクエスト処理ゴルーチンから切り離し、
// 固定サイズのワーカープールで実行する。同時実行数が上限に達した場合は
// キューで待機するため、サインインの殺到が全コアを占有することはない。
package hasher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher はワーカープール上でbcryptを実行するパスワードハッシャー。
type Hasher struct {
	cost  int
	jobs  chan job
	decoy string
}

// job はワーカーに渡す1件のハッシュ計算。
type job struct {
	run  func() result
	done chan result
}

type result struct {
	hash  string
	match bool
	err   error
}

// New はworkers個のワーカーを起動したHasherを生成する。
// costはbcryptのコストファクタ。参照ハードウェアでコスト12が1回あたり
// おおよそ200-300msになる。decoyハッシュは生成時に1回だけ計算する。
func New(cost, workers int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if workers < 1 {
		workers = 1
	}

	h := &Hasher{
		cost: cost,
		jobs: make(chan job, workers*2),
	}

	for i := 0; i < workers; i++ {
		go h.worker()
	}

	// デコイハッシュ: メール列挙防御用。存在しないアカウントへのサインイン
	// 試行でも常に1回のVerifyを実行するために使う。
	decoyPlain := make([]byte, 24)
	if _, err := rand.Read(decoyPlain); err != nil {
		return nil, fmt.Errorf("failed to generate decoy password: %w", err)
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(decoyPlain)), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash decoy password: %w", err)
	}
	h.decoy = string(decoy)

	return h, nil
}

// worker はキューからジョブを取り出して実行するループ。
func (h *Hasher) worker() {
	for j := range h.jobs {
		j.done <- j.run()
	}
}

// submit はジョブをキューに投入し、完了またはctxのキャンセルを待つ。
func (h *Hasher) submit(ctx context.Context, run func() result) (result, error) {
	j := job{run: run, done: make(chan result, 1)}

	select {
	case h.jobs <- j:
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-j.done:
		return res, nil
	case <-ctx.Done():
		// ワーカーは計算を完了するが、結果はバッファ付きチャネルに捨てられる
		return result{}, ctx.Err()
	}
}

// Hash は平文パスワードをランダムソルト付きでハッシュ化する。
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	res, err := h.submit(ctx, func() result {
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
		return result{hash: string(hash), err: err}
	})
	if err != nil {
		return "", err
	}
	if res.err != nil {
		return "", fmt.Errorf("failed to hash password: %w", res.err)
	}
	return res.hash, nil
}

// Verify は平文パスワードをハッシュと照合する。
// パスワード不一致はエラーではなくfalseを返す。エラーを返すのは
// 保存されたハッシュ自体が壊れている場合のみで、これは内部異常として扱う。
func (h *Hasher) Verify(ctx context.Context, plain, hash string) (bool, error) {
	res, err := h.submit(ctx, func() result {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
		switch err {
		case nil:
			return result{match: true}
		case bcrypt.ErrMismatchedHashAndPassword:
			return result{match: false}
		default:
			return result{err: err}
		}
	})
	if err != nil {
		return false, err
	}
	if res.err != nil {
		return false, fmt.Errorf("malformed password hash: %w", res.err)
	}
	return res.match, nil
}

// DecoyHash はアカウント不存在時の照合に使うデコイハッシュを返す。
// どの実在アカウントのパスワードにも一致しない。
func (h *Hasher) DecoyHash() string {
	return h.decoy
}

// Close はワーカープールを停止する。以降のHash/Verify呼び出しは不正。
func (h *Hasher) Close() {
	close(h.jobs)
}
