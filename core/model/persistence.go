package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// ArtifactFilename は出力ディレクトリ内に保存される学習成果物のファイル名
const ArtifactFilename = "bc_output.gob"

// SaveModel はモデルをファイルに保存する
//
// パラメータ:
//   - model: 保存するモデル（インターフェース値を含む場合は事前に gob.Register が必要）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	err := model.SaveModel(artifact, "out/bc_output.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}

	if err := SaveModelToWriter(model, file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", filename)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のポインタ
//   - filename: 読み込み元のファイルパス
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// SaveToDir は dir/ArtifactFilename にモデルを保存する。
// ディレクトリが存在しない場合は作成し、既に存在する場合はそのまま使う。
//
// 戻り値:
//   - string: 書き込んだファイルのパス
func SaveToDir(model interface{}, dir string) (string, error) {
	if dir == "" {
		return "", errors.NewValueError("model.SaveToDir", "output directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	path := filepath.Join(dir, ArtifactFilename)
	if err := SaveModel(model, path); err != nil {
		return "", err
	}
	return path, nil
}

// LoadFromDir は dir/ArtifactFilename からモデルを読み込む
func LoadFromDir(model interface{}, dir string) error {
	return LoadModel(model, filepath.Join(dir, ArtifactFilename))
}
