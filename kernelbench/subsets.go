/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kernelbench

import (
	"fmt"

	"github.com/cloudwego/kernelforge/internal/log"
)

// Curated subsets of the suite used for experiment sweeps. Level 1 is single
// operators, level 2 fused operator chains, level 3 whole model blocks.
var Level1Subset = []string{
	"1_Square_matrix_multiplication_.py",
	"3_Batched_matrix_multiplication.py",
	"6_Matmul_with_large_K_dimension_.py",
	"18_Matmul_with_transposed_both.py",
	"23_Softmax.py",
	"26_GELU_.py",
	"33_BatchNorm.py",
	"36_RMSNorm_.py",
	"40_LayerNorm.py",
	"42_Max_Pooling_2D.py",
	"48_Mean_reduction_over_a_dimension.py",
	"54_conv_standard_3D__square_input__square_kernel.py",
	"57_conv_transposed_2D__square_input__square_kernel.py",
	"65_conv_transposed_2D__square_input__asymmetric_kernel.py",
	"77_conv_transposed_3D_square_input_square_kernel___padded____dilated____strided__.py",
	"82_conv_depthwise_2D_square_input_square_kernel.py",
	"86_conv_depthwise_separable_2D.py",
	"87_conv_pointwise_2D.py",
}

var Level2Subset = []string{
	"1_Conv2D_ReLU_BiasAdd.py",
	"2_ConvTranspose2d_BiasAdd_Clamp_Scaling_Clamp_Divide.py",
	"8_Conv3d_Divide_Max_GlobalAvgPool_BiasAdd_Sum.py",
	"18_Matmul_Sum_Max_AvgPool_LogSumExp_LogSumExp.py",
	"23_Conv3d_GroupNorm_Mean.py",
	"28_BMM_InstanceNorm_Sum_ResidualAdd_Multiply.py",
	"33_Gemm_Scale_BatchNorm.py",
	"43_Conv3d_Max_LogSumExp_ReLU.py",
}

var Level3Subset = []string{
	"1_MLP.py",
	"5_AlexNet.py",
	"8_ResNetBasicBlock.py",
	"11_VGG16.py",
	"20_MobileNetV2.py",
	"21_EfficientNetMBConv.py",
	"33_VanillaRNN.py",
	"38_LTSMBidirectional.py",
	"43_MinGPTCausalAttention.py",
}

// SubsetNames returns the curated subset filenames for a level (1..3).
func SubsetNames(level int) ([]string, error) {
	switch level {
	case 1:
		return Level1Subset, nil
	case 2:
		return Level2Subset, nil
	case 3:
		return Level3Subset, nil
	default:
		return nil, fmt.Errorf("no curated subset for level %d", level)
	}
}

// Subset resolves the curated subset for a level against a loaded dataset.
// Missing entries are logged and skipped rather than failing the sweep.
func Subset(d *Dataset, level int) ([]Problem, error) {
	names, err := SubsetNames(level)
	if err != nil {
		return nil, err
	}
	out := make([]Problem, 0, len(names))
	for _, name := range names {
		p, ok := d.LookupName(name)
		if !ok {
			log.Warn("subset entry %s not present in %s", name, d.Dir)
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}
